package qir

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// Compact binary layout: 4-byte magic, 2-byte big-endian format version,
// then a gob stream of the Module. The format is private to this tool (the
// compile command writes it, the loader reads it back), so gob's Go-centric
// encoding is acceptable; the version gate rejects stale files.
var binaryMagic = [4]byte{'Q', 'B', 'C', '\x00'}

// WriteBinary serializes a parsed module in the compact binary form.
func WriteBinary(w io.Writer, m *Module) error {
	if _, err := w.Write(binaryMagic[:]); err != nil {
		return fmt.Errorf("write module header: %w", err)
	}
	var version [2]byte
	binary.BigEndian.PutUint16(version[:], FormatVersion)
	if _, err := w.Write(version[:]); err != nil {
		return fmt.Errorf("write module header: %w", err)
	}
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("encode module: %w", err)
	}
	return nil
}

// ReadBinary deserializes a compact binary module. path is used for
// diagnostics only.
func ReadBinary(r io.Reader, path string) (*Module, error) {
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, &LoadError{Path: path, Message: "truncated binary module", Err: err}
	}
	if !bytes.Equal(header[:4], binaryMagic[:]) {
		return nil, &LoadError{Path: path, Message: "not a compact binary module"}
	}
	if v := binary.BigEndian.Uint16(header[4:]); v != FormatVersion {
		return nil, &LoadError{
			Path:    path,
			Message: fmt.Sprintf("unsupported binary format version %d (want %d)", v, FormatVersion),
		}
	}

	var m Module
	if err := gob.NewDecoder(r).Decode(&m); err != nil {
		return nil, &LoadError{Path: path, Message: "decode module", Err: err}
	}
	return &m, nil
}

// IsBinary reports whether data opens with the compact binary magic.
func IsBinary(data []byte) bool {
	return len(data) >= len(binaryMagic) && bytes.Equal(data[:len(binaryMagic)], binaryMagic[:])
}
