package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratewatch/internal/config"
	"cratewatch/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	upstream   *testsupport.IndexUpstream
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	upstream := testsupport.NewIndexUpstream(t)
	upstream.WriteFile("config.json", `{"dl":"https://example.invalid"}`+"\n")

	cfg := testsupport.NewConfig(t,
		testsupport.WithIndexURL(upstream.Dir),
		testsupport.WithBuilderScript(`[ "$1" = "broken" ] && exit 1
exit 0`),
	)
	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	require.NoError(t, os.MkdirAll(homeDir, 0o755))
	t.Setenv("HOME", homeDir)
	t.Setenv("CRATEWATCH_NTFY_TOPIC", "")

	configPath := filepath.Join(testsupport.BaseDir(cfg), "cratewatch.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, upstream: upstream}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustRun executes args and fails the test on a command error.
func mustRun(t *testing.T, configPath string, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args, configPath)
	require.NoError(t, err, "%v\n%s%s", args, out, stderr)
	return out
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRun(t, env.configPath, "config", "validate")
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRun(t, "", "config", "init", "--path", target)
	assert.Contains(t, out, "Wrote sample configuration")
	require.FileExists(t, target)

	_, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	assert.Error(t, err, "init should refuse overwriting without --overwrite")

	assert.Contains(t, mustRun(t, target, "config", "validate"), "Configuration valid")
}

func TestQueueCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	assert.Contains(t, mustRun(t, env.configPath, "queue", "list"), "Queue is empty")

	for _, args := range [][]string{{"serde", "1.0.0"}, {"rand", "0.8.5"}, {"serde", "1.0.1"}} {
		out := mustRun(t, env.configPath, append([]string{"queue", "add"}, args...)...)
		assert.Contains(t, out, "Queued "+args[0]+" "+args[1])
	}

	out := mustRun(t, env.configPath, "queue", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, out)
	assert.True(t, strings.HasPrefix(lines[0], "1\tserde\t1.0.0\t"), out)
	assert.True(t, strings.HasPrefix(lines[2], "3\tserde\t1.0.1\t"), out)

	assert.Contains(t, mustRun(t, env.configPath, "queue", "remove", "2", "99"), "Removed 1 of 2 entries")

	_, _, err := runCLI(t, []string{"queue", "remove", "abc"}, env.configPath)
	assert.Error(t, err, "invalid id")
	_, _, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	assert.Error(t, err, "clear without --force")

	assert.Contains(t, mustRun(t, env.configPath, "queue", "clear", "--force"), "Cleared 2 queue entries")
}

func TestCloneSyncDrain(t *testing.T) {
	env := setupCLITestEnv(t)

	assert.Contains(t, mustRun(t, env.configPath, "index", "clone"), "Cloned ")
	assert.Contains(t, mustRun(t, env.configPath, "sync"), "Index unchanged")

	env.upstream.AppendLines("3/f/foo",
		`{"name":"foo","vers":"1.0.0","deps":[],"cksum":"abc","features":{},"yanked":false}`,
		`{"name":"broken","vers":"0.1.0"}`,
		`{not json`,
	)

	out := mustRun(t, env.configPath, "sync")
	assert.Contains(t, out, "Queued\t2")
	assert.Contains(t, out, "Malformed\t1")

	out = mustRun(t, env.configPath, "drain")
	assert.Contains(t, out, "foo\t1.0.0\tbuilt")
	assert.Contains(t, out, "broken\t0.1.0\tfailed")
	assert.Contains(t, out, "Attempted 2 of 2: 1 built, 1 failed")

	out = mustRun(t, env.configPath, "queue", "list")
	assert.Contains(t, out, "broken\t0.1.0")
	assert.NotContains(t, out, "foo", "built release should have been removed")

	assert.Contains(t, mustRun(t, env.configPath, "index", "status"), "Branch: master")

	out = mustRun(t, env.configPath, "preflight")
	assert.Contains(t, out, "Index checkout\tok")
	assert.Contains(t, out, "(1 pending)")

	assert.Contains(t, mustRun(t, env.configPath, "logs", "--lines", "200"), `"event_type":"release_queued"`)
}

func TestPreflightFailsBeforeClone(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"preflight"}, env.configPath)
	require.Error(t, err, "preflight should fail without an index checkout")
	assert.Contains(t, out, "Index checkout\tFAIL")
}

func TestSyncWithoutCheckoutFails(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"sync"}, env.configPath)
	assert.Error(t, err)
}

func TestDrainRequiresBuilder(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Builder.Command = ""
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"drain"}, env.configPath)
	assert.Error(t, err, "drain without builder.command")
}

func TestTestNotify(t *testing.T) {
	env := setupCLITestEnv(t)

	assert.Contains(t, mustRun(t, env.configPath, "test-notify"), "Notification not sent")

	var title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env.cfg.Notifications.NtfyTopic = server.URL
	writeTestConfig(t, env.configPath, env.cfg)

	assert.Contains(t, mustRun(t, env.configPath, "test-notify"), "Test notification sent")
	assert.Equal(t, "cratewatch - Test", title)
}
