package store

// Run is one recorded evaluation.
type Run struct {
	ID           string
	ModulePath   string
	EntryPoint   string
	Backend      string
	ResultStream []bool
	Fingerprint  string
	Status       string
	Error        string
	CreatedAt    string
}
