package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"metric-insights/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Baseline   BaselineConfig   `mapstructure:"baseline"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Retention  RetentionConfig  `mapstructure:"retention"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CollectorConfig governs host metric sampling.
type CollectorConfig struct {
	DiskPath string `mapstructure:"disk_path"`
}

// SchedulerConfig governs collection cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// BaselineConfig governs rolling statistics.
type BaselineConfig struct {
	Lookback          time.Duration `mapstructure:"lookback"`
	MinSamples        int           `mapstructure:"min_samples"`
	RecomputeInterval time.Duration `mapstructure:"recompute_interval"`
}

// MetricThresholdConfig is the static threshold pair for one metric.
type MetricThresholdConfig struct {
	Warning  float64 `mapstructure:"warning"`
	Critical float64 `mapstructure:"critical"`
	Adaptive bool    `mapstructure:"adaptive"`
}

// ThresholdsConfig defines static thresholds and the dynamic derivation
// guards.
type ThresholdsConfig struct {
	HardCeiling     float64                          `mapstructure:"hard_ceiling"`
	DefaultSpread   float64                          `mapstructure:"default_spread"`
	DefaultWarning  float64                          `mapstructure:"default_warning"`
	DefaultCritical float64                          `mapstructure:"default_critical"`
	Metrics         map[string]MetricThresholdConfig `mapstructure:"metrics"`
}

// AnalysisConfig tunes the trend, correlation, anomaly, and forecast
// engines.
type AnalysisConfig struct {
	TrendWindow           time.Duration `mapstructure:"trend_window"`
	ForecastLookback      time.Duration `mapstructure:"forecast_lookback"`
	CorrelationWindow     time.Duration `mapstructure:"correlation_window"`
	ResampleInterval      time.Duration `mapstructure:"resample_interval"`
	AnomalyWindow         time.Duration `mapstructure:"anomaly_window"`
	AnomalyEps            float64       `mapstructure:"anomaly_eps"`
	AnomalyMinSamples     int           `mapstructure:"anomaly_min_samples"`
	AnomalyMinRows        int           `mapstructure:"anomaly_min_rows"`
	MaxQueryPoints        int           `mapstructure:"max_query_points"`
	MaxCorrelationMetrics int           `mapstructure:"max_correlation_metrics"`
}

// AlertsConfig bounds the in-process alert log and routes notifications.
type AlertsConfig struct {
	LogCapacity    int           `mapstructure:"log_capacity"`
	IdentityBucket time.Duration `mapstructure:"identity_bucket"`
	Webhook        WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig describes the outbound alert webhook.
type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RetentionConfig governs point pruning.
type RetentionConfig struct {
	MaxAge time.Duration `mapstructure:"max_age"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("METRICWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "metricwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("collector.disk_path", "/")

	v.SetDefault("scheduler.interval", "15s")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x6d657472))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("baseline.lookback", "24h")
	v.SetDefault("baseline.min_samples", 10)
	v.SetDefault("baseline.recompute_interval", "5m")

	v.SetDefault("thresholds.hard_ceiling", 98.0)
	v.SetDefault("thresholds.default_spread", 5.0)
	v.SetDefault("thresholds.default_warning", 80.0)
	v.SetDefault("thresholds.default_critical", 95.0)
	v.SetDefault("thresholds.metrics", map[string]map[string]interface{}{
		"cpu_percent":      {"warning": 70.0, "critical": 85.0, "adaptive": true},
		"memory_percent":   {"warning": 75.0, "critical": 90.0, "adaptive": true},
		"disk_percent":     {"warning": 80.0, "critical": 95.0, "adaptive": false},
		"network_in_mbps":  {"warning": 100.0, "critical": 500.0, "adaptive": true},
		"network_out_mbps": {"warning": 100.0, "critical": 500.0, "adaptive": true},
		"load_average":     {"warning": 2.0, "critical": 4.0, "adaptive": true},
	})

	v.SetDefault("analysis.trend_window", "24h")
	v.SetDefault("analysis.forecast_lookback", "24h")
	v.SetDefault("analysis.correlation_window", "24h")
	v.SetDefault("analysis.resample_interval", "1m")
	v.SetDefault("analysis.anomaly_window", "24h")
	v.SetDefault("analysis.anomaly_eps", 2.0)
	v.SetDefault("analysis.anomaly_min_samples", 5)
	v.SetDefault("analysis.anomaly_min_rows", 100)
	v.SetDefault("analysis.max_query_points", 10000)
	v.SetDefault("analysis.max_correlation_metrics", 12)

	v.SetDefault("alerts.log_capacity", 1000)
	v.SetDefault("alerts.identity_bucket", "5m")
	v.SetDefault("alerts.webhook.enabled", false)
	v.SetDefault("alerts.webhook.timeout", "10s")

	v.SetDefault("retention.max_age", "720h")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Baseline.Lookback <= 0 {
		return fmt.Errorf("baseline.lookback must be greater than zero")
	}
	if c.Baseline.MinSamples < 2 {
		return fmt.Errorf("baseline.min_samples must be at least 2")
	}
	if c.Baseline.RecomputeInterval <= 0 {
		return fmt.Errorf("baseline.recompute_interval must be greater than zero")
	}
	if c.Thresholds.HardCeiling <= 0 {
		return fmt.Errorf("thresholds.hard_ceiling must be greater than zero")
	}
	if c.Thresholds.DefaultSpread <= 0 {
		return fmt.Errorf("thresholds.default_spread must be greater than zero")
	}
	if c.Thresholds.DefaultWarning >= c.Thresholds.DefaultCritical {
		return fmt.Errorf("thresholds.default_warning must be below thresholds.default_critical")
	}
	for name, t := range c.Thresholds.Metrics {
		if t.Warning >= t.Critical {
			return fmt.Errorf("thresholds.metrics.%s: warning must be below critical", name)
		}
	}
	if c.Analysis.ResampleInterval <= 0 {
		return fmt.Errorf("analysis.resample_interval must be greater than zero")
	}
	if c.Analysis.AnomalyEps <= 0 {
		return fmt.Errorf("analysis.anomaly_eps must be greater than zero")
	}
	if c.Analysis.AnomalyMinSamples <= 0 {
		return fmt.Errorf("analysis.anomaly_min_samples must be greater than zero")
	}
	if c.Analysis.MaxQueryPoints <= 0 {
		return fmt.Errorf("analysis.max_query_points must be greater than zero")
	}
	if c.Alerts.LogCapacity <= 0 {
		return fmt.Errorf("alerts.log_capacity must be greater than zero")
	}
	if c.Alerts.IdentityBucket <= 0 {
		return fmt.Errorf("alerts.identity_bucket must be greater than zero")
	}
	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		return fmt.Errorf("alerts.webhook.url is required when the webhook is enabled")
	}
	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention.max_age must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
