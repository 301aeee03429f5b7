package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	require.NoError(t, os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	require.Len(t, results, len(reqs))

	assert.True(t, results[0].Available)
	assert.Equal(t, present, results[0].Path)
	assert.Empty(t, results[0].Detail)

	assert.False(t, results[1].Available)
	assert.NotEmpty(t, results[1].Detail)
	assert.Equal(t, "clearly-not-present-binary", results[1].Command)

	assert.Equal(t, "command not configured", results[2].Detail)

	missing := Missing(results)
	require.Len(t, missing, 1)
	assert.Equal(t, "Missing", missing[0].Name)
}

func TestCheckBinariesSearchesPath(t *testing.T) {
	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "build-crate"), []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", binDir)

	results := CheckBinaries([]Requirement{{Name: "Builder", Command: "build-crate"}})
	require.True(t, results[0].Available, results[0].Detail)
	assert.Equal(t, filepath.Join(binDir, "build-crate"), results[0].Path)
}
