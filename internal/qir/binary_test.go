package qir

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinary_RoundTrip(t *testing.T) {
	original := parseString(t, bellSource)

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, original))
	assert.True(t, IsBinary(buf.Bytes()))

	decoded, err := ReadBinary(bytes.NewReader(buf.Bytes()), "bell.qbc")
	require.NoError(t, err)

	assert.Equal(t, original.Name, decoded.Name)
	assert.Equal(t, original.Declared, decoded.Declared)
	require.Len(t, decoded.Functions, 1)
	assert.Equal(t, original.Functions[0], decoded.Functions[0])
}

func TestBinary_RejectsWrongMagic(t *testing.T) {
	_, err := ReadBinary(strings.NewReader("define void @main()"), "test.qbc")
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
}

func TestIsBinary_TextualModule(t *testing.T) {
	assert.False(t, IsBinary([]byte(bellSource)))
}

func TestLoad_DispatchesOnMagic(t *testing.T) {
	dir := t.TempDir()

	textPath := filepath.Join(dir, "bell.ll")
	require.NoError(t, os.WriteFile(textPath, []byte(bellSource), 0o644))

	fromText, err := Load(textPath)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, fromText))
	binPath := filepath.Join(dir, "bell.qbc")
	require.NoError(t, os.WriteFile(binPath, buf.Bytes(), 0o644))

	fromBinary, err := Load(binPath)
	require.NoError(t, err)
	assert.Equal(t, fromText.Functions, fromBinary.Functions)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.ll"))
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
}
