package config

const (
	// DriverSQLite stores the queue in a local SQLite file.
	DriverSQLite = "sqlite"
	// DriverPostgres stores the queue in a PostgreSQL database.
	DriverPostgres = "postgres"
)

const (
	defaultConfigPath         = "~/.config/cratewatch/config.toml"
	defaultDataDir            = "~/.local/share/cratewatch"
	defaultLogDir             = "~/.local/share/cratewatch/logs"
	defaultIndexDirName       = "crates.io-index"
	defaultIndexURL           = "https://github.com/rust-lang/crates.io-index.git"
	defaultIndexRemote        = "origin"
	defaultIndexBranch        = "master"
	defaultQueueFileName      = "queue.db"
	defaultBuilderTimeout     = 900
	defaultSyncInterval       = 60
	defaultDrainInterval      = 30
	defaultErrorRetryInterval = 10
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
	defaultLogMaxSizeMB       = 100
	defaultLogMaxBackups      = 5
)

// Default returns a Config populated with repository defaults. Index and queue
// paths left empty are derived from the data directory during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Index: Index{
			URL:    defaultIndexURL,
			Remote: defaultIndexRemote,
			Branch: defaultIndexBranch,
		},
		Queue: Queue{
			Driver: DriverSQLite,
		},
		Builder: Builder{
			TimeoutSeconds: defaultBuilderTimeout,
		},
		Workflow: Workflow{
			SyncInterval:       defaultSyncInterval,
			DrainInterval:      defaultDrainInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
		},
	}
}
