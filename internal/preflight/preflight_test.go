package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratewatch/internal/index"
	"cratewatch/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	assert.True(t, result.Passed, result.Detail)
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	assert.False(t, result.Passed)
	assert.NotEmpty(t, result.Detail)
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	assert.False(t, CheckDirectoryAccess("test", f).Passed)
}

func TestRunAllBeforeClone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	require.NoError(t, cfg.EnsureDirectories())

	results := RunAll(context.Background(), cfg)
	require.Len(t, results, 5)
	failed := Failed(results)
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		names = append(names, r.Name)
	}
	require.Equal(t, []string{"Index checkout", "Build command"}, names)
	assert.Contains(t, failed[0].Detail, "index clone")
}

func TestRunAllReady(t *testing.T) {
	upstream := testsupport.NewIndexUpstream(t)
	upstream.AppendLines("3/f/foo", `{"name":"foo","vers":"1.0.0"}`)
	cfg := testsupport.NewConfig(t,
		testsupport.WithIndexURL(upstream.Dir),
		testsupport.WithBuilderScript("exit 0"),
	)
	require.NoError(t, cfg.EnsureDirectories())
	_, err := index.Clone(context.Background(), index.Options{Path: cfg.Index.Path, URL: cfg.Index.URL})
	require.NoError(t, err)
	testsupport.MustEnqueue(t, testsupport.MustOpenStore(t, cfg), "foo", "1.0.0")

	results := RunAll(context.Background(), cfg)
	require.Empty(t, Failed(results))
	assert.Contains(t, results[3].Detail, "(1 pending)")
	assert.Equal(t, cfg.Builder.Command, results[4].Detail)
}
