package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pcd", "a.bin", "notes.txt", "c.cdr"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	files, err := collect([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.bin"),
		filepath.Join(dir, "b.pcd"),
		filepath.Join(dir, "c.cdr"),
	}, files)

	single := filepath.Join(dir, "notes.txt")
	files, err = collect([]string{single})
	require.NoError(t, err)
	assert.Equal(t, []string{single}, files)

	_, err = collect([]string{t.TempDir()})
	assert.Error(t, err)
	_, err = collect([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
