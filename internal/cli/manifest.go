package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Manifest is a declarative run description loaded from a CUE file. It
// carries everything the run command would otherwise take as flags; explicit
// flags override manifest values.
type Manifest struct {
	Module     string `json:"module"`
	EntryPoint string `json:"entry_point"`
	Backend    string `json:"backend"`
	Results    []bool `json:"results"`
	Database   string `json:"db"`
}

// manifestSchema constrains manifest files: unknown fields are rejected and
// field types are checked before decoding.
const manifestSchema = `
run: close({
	module:       string
	entry_point?: string
	backend?:     "logger" | "sim"
	results?:     [...bool]
	db?:          string
})
`

// LoadManifest reads and validates a CUE run manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(manifestSchema, cue.Filename("manifest-schema"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("internal manifest schema error: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	runVal := unified.LookupPath(cue.ParsePath("run"))
	if !runVal.Exists() {
		return nil, fmt.Errorf("invalid manifest %s: missing run field", path)
	}

	var manifest Manifest
	if err := runVal.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	if manifest.Module == "" {
		return nil, fmt.Errorf("invalid manifest %s: run.module is required", path)
	}

	return &manifest, nil
}
