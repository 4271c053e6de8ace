// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MaxActiveDuels bounds the number of concurrently running duel sessions.
	MaxActiveDuels int `koanf:"max_active_duels"`

	// MaxRecent bounds the archived recent-duel log.
	MaxRecent int `koanf:"max_recent"`

	// RecentFile is the path of the file-backed archive.
	RecentFile string `koanf:"recent_file"`

	// HandlesFile is the path of the persisted handle-link registry.
	HandlesFile string `koanf:"handles_file"`

	// ArchiveDriver selects the archive backend: "file" or "postgres".
	ArchiveDriver string `koanf:"archive_driver"`

	// PostgresDSN is used when ArchiveDriver is "postgres".
	PostgresDSN string `koanf:"postgres_dsn"`

	// JudgeBaseURL is the judge API root, e.g. "https://codeforces.com/api".
	JudgeBaseURL string `koanf:"judge_base_url"`

	// JudgeMinIntervalMS enforces global spacing between judge API calls.
	JudgeMinIntervalMS int `koanf:"judge_min_interval_ms"`

	// JudgeRetries is the number of attempts per judge API call.
	JudgeRetries int `koanf:"judge_retries"`

	// JudgeRetryBackoffMS is the sleep between failed judge API attempts.
	JudgeRetryBackoffMS int `koanf:"judge_retry_backoff_ms"`

	// SweepIntervalS is the timeout-watcher sweep interval in seconds.
	SweepIntervalS int `koanf:"sweep_interval_s"`

	// AutoCheckIntervalS enables periodic reconciliation when > 0.
	AutoCheckIntervalS int `koanf:"auto_check_interval_s"`

	// AnnounceQueueSize bounds the in-memory announcement queue.
	AnnounceQueueSize int `koanf:"announce_queue_size"`

	// AnnounceWorkers sets the number of announcement delivery workers.
	AnnounceWorkers int `koanf:"announce_workers"`

	// DefaultTimeLimitMin is the duel time limit when none is requested.
	DefaultTimeLimitMin int `koanf:"default_time_limit_min"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		MaxActiveDuels:      20,
		MaxRecent:           20,
		RecentFile:          "recent_duels.json",
		HandlesFile:         "handles.json",
		ArchiveDriver:       "file",
		PostgresDSN:         "",
		JudgeBaseURL:        "https://codeforces.com/api",
		JudgeMinIntervalMS:  2000,
		JudgeRetries:        2,
		JudgeRetryBackoffMS: 1000,
		SweepIntervalS:      5,
		AutoCheckIntervalS:  0,
		AnnounceQueueSize:   1024,
		AnnounceWorkers:     1,
		DefaultTimeLimitMin: 30,
	}
}
