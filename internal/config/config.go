// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, an optional YAML file, and environment vars.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// Community names the community being monitored.
	Community string `koanf:"community"`

	// BaseURL overrides the content platform API endpoint.
	BaseURL string `koanf:"base_url"`

	// UserAgent identifies the bot to the platform.
	UserAgent string `koanf:"user_agent"`

	// Token is the platform OAuth bearer token.
	Token string `koanf:"token"`

	// DryRun evaluates and audits without writing flairs.
	DryRun bool `koanf:"dry_run"`

	// UserIgnoreList names authors that are never evaluated.
	UserIgnoreList []string `koanf:"user_ignore_list"`

	// CategoryIgnoreList names flair categories that are never retagged.
	CategoryIgnoreList []string `koanf:"category_ignore_list"`

	// DebounceMinutes is the minimum gap between evaluations of one user.
	DebounceMinutes int `koanf:"debounce_minutes"`

	// RescanMinutes is the interval between full activity rescans.
	RescanMinutes int `koanf:"rescan_minutes"`

	// PollSeconds is the interval between live feed polls.
	PollSeconds int `koanf:"poll_seconds"`

	// HistoryStaleHours is how long a cached history stays fresh.
	HistoryStaleHours int `koanf:"history_stale_hours"`

	// HistoryOverlapDays is the refetch overlap behind the newest cached item.
	HistoryOverlapDays int `koanf:"history_overlap_days"`

	// HistoryEarlyBail stops fetching once the lurker heuristic fires.
	HistoryEarlyBail bool `koanf:"history_early_bail"`

	// TooNewDays excludes contributions younger than this from scoring.
	TooNewDays int `koanf:"too_new_days"`

	// LookbackDays bounds how far back scoring walks a history.
	LookbackDays int `koanf:"lookback_days"`

	// PageSize sets the platform listing page size.
	PageSize int `koanf:"page_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9090",
		DBPath:             "flairward.db",
		Community:          "",
		UserAgent:          "flairward/1.0",
		DebounceMinutes:    5,
		RescanMinutes:      5,
		PollSeconds:        15,
		HistoryStaleHours:  24,
		HistoryOverlapDays: 7,
		TooNewDays:         3,
		LookbackDays:       730,
		PageSize:           100,
	}
}
