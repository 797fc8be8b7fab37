package qir

import (
	"bytes"
	"os"
)

// Load reads a module from disk, accepting either the textual form or the
// compact binary form. The two are distinguished by content (binary magic),
// not file extension, so renamed files still load.
//
// All failures are LoadErrors: missing path, unreadable file, parse error,
// bad binary header.
func Load(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "read module", Err: err}
	}

	if IsBinary(data) {
		return ReadBinary(bytes.NewReader(data), path)
	}
	return Parse(bytes.NewReader(data), path)
}
