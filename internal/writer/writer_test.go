package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FileWriter_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(path, []byte("old report that is longer"), 0o600))

	w := &FileWriter{Path: path}
	require.NoError(t, w.WriteReport([]byte("new")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func Test_FileWriter_MissingDir(t *testing.T) {
	w := &FileWriter{Path: filepath.Join(t.TempDir(), "nope", "report.md")}
	err := w.WriteReport([]byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create temp file")
}

func Test_StreamAndMemWriters(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&StreamWriter{W: &out}).WriteReport([]byte("hello")))
	assert.Equal(t, "hello", out.String())

	m := &MemWriter{}
	src := []byte("first")
	require.NoError(t, m.WriteReport(src))
	src[0] = 'F'
	require.NoError(t, m.WriteReport([]byte("second")))
	assert.Equal(t, "second", string(m.Buf))
	assert.Equal(t, 2, m.Writes)
}

func Test_For(t *testing.T) {
	assert.IsType(t, &StreamWriter{}, For(""))
	fw, ok := For("x.md").(*FileWriter)
	require.True(t, ok)
	assert.Equal(t, "x.md", fw.Path)
}
