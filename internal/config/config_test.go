package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratewatch/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Index.Path = "/tmp/index"
	cfg.Queue.Path = "/tmp/queue.db"
	return cfg
}

func TestLoadDefaultConfigDerivesPathsFromDataDir(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CRATEWATCH_QUEUE_DSN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, resolved)
	assert.False(t, exists, "config file should be absent in temp HOME")

	dataDir := filepath.Join(tempHome, ".local", "share", "cratewatch")
	assert.Equal(t, dataDir, cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "crates.io-index"), cfg.Index.Path)
	assert.Equal(t, config.DriverSQLite, cfg.Queue.Driver)
	assert.Equal(t, filepath.Join(dataDir, "queue.db"), cfg.Queue.Path)
	assert.Equal(t, "origin", cfg.Index.Remote)
	assert.Equal(t, "master", cfg.Index.Branch)
	assert.Equal(t, config.Default().Workflow.SyncInterval, cfg.Workflow.SyncInterval)
	assert.Equal(t, filepath.Join(cfg.Paths.LogDir, "builds"), cfg.BuildLogDir())
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := writeConfig(t, `
[paths]
data_dir = "~/cw"

[index]
path = "~/mirror/index"
remote = "upstream"
branch = "main"

[builder]
command = "  docs-build  "
args = ["{name}", "{version}"]
timeout_seconds = -5

[workflow]
sync_interval = 5

[logging]
format = "JSON"
level = " DEBUG "
`)

	cfg, resolved, exists, err := config.Load(configPath)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, configPath, resolved)

	assert.Equal(t, filepath.Join(tempHome, "cw"), cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(tempHome, ".local", "share", "cratewatch", "logs"), cfg.Paths.LogDir,
		"explicit default log dir should be kept")
	assert.Equal(t, filepath.Join(tempHome, "mirror", "index"), cfg.Index.Path)
	assert.Equal(t, filepath.Join(tempHome, "cw", "queue.db"), cfg.Queue.Path, "queue path should follow data dir")
	assert.Equal(t, "upstream", cfg.Index.Remote)
	assert.Equal(t, "main", cfg.Index.Branch)
	assert.Equal(t, "docs-build", cfg.Builder.Command)
	assert.Zero(t, cfg.Builder.TimeoutSeconds, "negative timeout should clamp to zero")
	assert.Equal(t, 5, cfg.Workflow.SyncInterval)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CRATEWATCH_QUEUE_DSN", "")

	configPath := writeConfig(t, "[queue]\ndriver = \"postgresql\"\n")

	_, _, _, err := config.Load(configPath)
	require.ErrorContains(t, err, "queue.dsn")

	t.Setenv("CRATEWATCH_QUEUE_DSN", "postgres://localhost/cratewatch")
	cfg, _, _, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.DriverPostgres, cfg.Queue.Driver)
	assert.Equal(t, "postgres://localhost/cratewatch", cfg.Queue.DSN)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "queue.driver")
}

func TestValidateRejectsNonPositiveIntervals(t *testing.T) {
	cfg := validConfig()
	cfg.Workflow.DrainInterval = 0
	assert.ErrorContains(t, cfg.Validate(), "workflow.drain_interval")
}

func TestValidateBuilderRequiresCommand(t *testing.T) {
	cfg := config.Default()
	assert.Error(t, cfg.ValidateBuilder())
	cfg.Builder.Command = "true"
	assert.NoError(t, cfg.ValidateBuilder())
}

func TestIndexTokenFallsBackToEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CRATEWATCH_INDEX_TOKEN", " secret ")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Index.AuthToken)
}

func TestNotificationsTopicFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CRATEWATCH_NTFY_TOPIC", "https://ntfy.example/cratewatch")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://ntfy.example/cratewatch", cfg.Notifications.NtfyTopic)
	assert.Equal(t, 10, cfg.Notifications.RequestTimeout)
}

func TestValidateRejectsBareNotificationTopic(t *testing.T) {
	cfg := validConfig()
	cfg.Notifications.NtfyTopic = "cratewatch"
	assert.ErrorContains(t, cfg.Validate(), "notifications.ntfy_topic")
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, toml.Unmarshal(data, &raw), "sample is not valid TOML")
	for _, section := range []string{"paths", "index", "queue", "builder", "workflow", "notifications", "logging"} {
		assert.Contains(t, raw, section, "sample missing [%s] section", section)
	}

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NotEmpty(t, cfg.Builder.Command, "sample should configure a builder command")
	assert.Len(t, cfg.Builder.Args, 4)
}

func TestEnsureDirectoriesCreatesDataAndLogDirs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Index.Path = filepath.Join(base, "mirror", "index")
	cfg.Queue.Path = filepath.Join(base, "queue", "queue.db")

	require.NoError(t, cfg.EnsureDirectories())
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, filepath.Join(base, "mirror"), filepath.Join(base, "queue")} {
		assert.DirExists(t, dir)
	}
	assert.NoDirExists(t, cfg.Index.Path, "index checkout directory should not be created")
}
