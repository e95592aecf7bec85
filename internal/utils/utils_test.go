package utils

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCommandLine(t *testing.T) {
	data := struct {
		RuntimeDir string
		Minutes    int
		Extra      string
	}{"/opt/p/venv", 60, ""}

	cmd, args, err := GetCommandLine("{{.RuntimeDir}}/bin/python", []string{"run.py", "--every", "{{.Minutes}}", "{{.Extra}}"}, data)
	require.NoError(t, err)
	assert.Equal(t, "/opt/p/venv/bin/python", cmd)
	assert.Equal(t, []string{"run.py", "--every", "60"}, args)
}

func TestGetCommandLineDoesNotEscape(t *testing.T) {
	_, args, err := GetCommandLine("python", []string{"{{.V}}"}, map[string]string{"V": "a&b<c>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a&b<c>"}, args)
}

func TestGetCommandLineUnknownField(t *testing.T) {
	_, _, err := GetCommandLine("{{.Missing}}", nil, map[string]string{})
	require.Error(t, err)

	_, _, err = GetCommandLine("python", []string{"{{.Missing"}, nil)
	require.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "unit.service")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCopyFileRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("original"), 0644))

	require.NoError(t, CopyFile(src, dst, 0644))
	require.NoError(t, os.WriteFile(src, []byte("changed"), 0644))
	require.Error(t, CopyFile(src, dst, 0644))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assert.True(t, FileExists(dst))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
}

func TestCheckPortConnectable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port

	assert.True(t, CheckPortConnectable("127.0.0.1", port, time.Second))
	l.Close()
	assert.False(t, CheckPortConnectable("127.0.0.1", port, time.Second))
}
