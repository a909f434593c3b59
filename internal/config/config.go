// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, mirrors logs into a size-rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// NormalIntervalMS and EmergencyIntervalMS set the location sampling
	// cadence per tracking mode.
	NormalIntervalMS    int `koanf:"normal_interval_ms"`
	EmergencyIntervalMS int `koanf:"emergency_interval_ms"`

	// AccuracyCeilingM rejects fixes whose accuracy radius exceeds this
	// many meters.
	AccuracyCeilingM float64 `koanf:"accuracy_ceiling_m"`

	// StalenessWindowMS bounds how old the freshest sample may be before
	// scoring marks its recency degraded.
	StalenessWindowMS int `koanf:"staleness_window_ms"`

	// ScoreWeights maps factor IDs to their base scoring weights.
	ScoreWeights map[string]float64 `koanf:"score_weights"`

	// ScoreCacheTTLMS bounds how long a computed reading is reused for
	// the same location bucket.
	ScoreCacheTTLMS int `koanf:"score_cache_ttl_ms"`

	// LowConfidenceThreshold is the confidence below which readings are
	// flagged for a warning badge.
	LowConfidenceThreshold int `koanf:"low_confidence_threshold"`

	// AdvisoryTimeoutMS and AdvisoryRetries bound each external area
	// advisory call. An empty AdvisoryAPIKey selects the static feed.
	AdvisoryTimeoutMS int    `koanf:"advisory_timeout_ms"`
	AdvisoryRetries   int    `koanf:"advisory_retries"`
	AdvisoryModel     string `koanf:"advisory_model"`
	AdvisoryAPIKey    string `koanf:"advisory_api_key"`
	AdvisoryEndpoint  string `koanf:"advisory_endpoint"`

	// DedupeWindowMS collapses identical notifications raised within the
	// window into one.
	DedupeWindowMS int `koanf:"dedupe_window_ms"`

	// HighDisplayMS and DefaultDisplayMS set auto-expiry for high and
	// medium/low priority notifications. Critical never expires.
	HighDisplayMS    int `koanf:"high_display_ms"`
	DefaultDisplayMS int `koanf:"default_display_ms"`

	// SoundThrottleMS spaces out audible alerts.
	SoundThrottleMS int `koanf:"sound_throttle_ms"`

	// CenterCapacity caps the in-memory notification center backlog.
	CenterCapacity int `koanf:"center_capacity"`

	// ConnectivityPollMS sets the connectivity probe cadence.
	ConnectivityPollMS int `koanf:"connectivity_poll_ms"`

	// PingTimeoutMS and PingRetries bound each backend reachability probe.
	PingTimeoutMS int `koanf:"ping_timeout_ms"`
	PingRetries   int `koanf:"ping_retries"`

	// DeliveryEndpoint is the websocket URL alert traffic is pushed to.
	// Empty selects the in-memory loopback channel.
	DeliveryEndpoint string `koanf:"delivery_endpoint"`

	// DeliveryAttempts, DeliveryBackoffMS and DeliveryTimeoutMS govern the
	// per-alert delivery retry budget. Backoff doubles per attempt.
	DeliveryAttempts  int `koanf:"delivery_attempts"`
	DeliveryBackoffMS int `koanf:"delivery_backoff_ms"`
	DeliveryTimeoutMS int `koanf:"delivery_timeout_ms"`

	// CountdownMS is the grace window between arming an alert and
	// triggering it.
	CountdownMS int `koanf:"countdown_ms"`

	// CancelPasswordHash is the bcrypt hash gating cancellation of
	// password-protected alerts. Empty means no password is configured
	// and protected cancels are refused.
	CancelPasswordHash string `koanf:"cancel_password_hash"`

	// GuardianKeySecret signs issued guardian keys. Empty derives an
	// ephemeral secret at startup, invalidating keys across restarts.
	GuardianKeySecret string `koanf:"guardian_key_secret"`

	// HistoryDBPath locates the SQLite audit trail. Empty disables it.
	HistoryDBPath string `koanf:"history_db_path"`

	// AreaFreshnessMS bounds how long an unrefreshed area stays in the
	// risk ranking. Zero keeps areas ranked indefinitely.
	AreaFreshnessMS int `koanf:"area_freshness_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:            "info",
		Addr:                ":8080",
		NormalIntervalMS:    30_000,
		EmergencyIntervalMS: 10_000,
		AccuracyCeilingM:    1000,
		StalenessWindowMS:   300_000,
		ScoreWeights: map[string]float64{
			"crime_index":         0.25,
			"lighting":            0.15,
			"population_density":  0.15,
			"time_of_day":         0.15,
			"emergency_proximity": 0.10,
			"connectivity":        0.10,
			"battery":             0.10,
		},
		ScoreCacheTTLMS:        300_000,
		LowConfidenceThreshold: 40,
		AdvisoryTimeoutMS:      5_000,
		AdvisoryRetries:        1,
		AdvisoryModel:          "gpt-4o-mini",
		DedupeWindowMS:         2_000,
		HighDisplayMS:          10_000,
		DefaultDisplayMS:       5_000,
		SoundThrottleMS:        2_000,
		CenterCapacity:         200,
		ConnectivityPollMS:     30_000,
		PingTimeoutMS:          5_000,
		PingRetries:            1,
		DeliveryAttempts:       3,
		DeliveryBackoffMS:      1_000,
		DeliveryTimeoutMS:      5_000,
		CountdownMS:            5_000,
		HistoryDBPath:          "aegis-history.db",
		AreaFreshnessMS:        1_800_000,
	}
	return c
}
