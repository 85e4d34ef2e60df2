package config

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelSilent LogLevel = "SILENT"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is used to compute the default extraction date (e.g., "UTC", "America/Chicago").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// LayoutConfig enumerates the bucket and every key prefix of the persisted layout.
// All prefixes end with "/".
type LayoutConfig struct {
	Bucket                  string `yaml:"bucket"`
	StorageRef              string `yaml:"storage_ref"` // Name of the entry under "storage".
	TaxiPendingPrefix       string `yaml:"taxi_pending_prefix"`
	WeatherPendingPrefix    string `yaml:"weather_pending_prefix"`
	TaxiArchivePrefix       string `yaml:"taxi_archive_prefix"`
	WeatherArchivePrefix    string `yaml:"weather_archive_prefix"`
	TaxiCuratedPrefix       string `yaml:"taxi_curated_prefix"`
	WeatherCuratedPrefix    string `yaml:"weather_curated_prefix"`
	CompanyMasterPrefix     string `yaml:"company_master_prefix"`
	PaymentTypeMasterPrefix string `yaml:"payment_type_master_prefix"`
	MasterBackupPrefix      string `yaml:"master_backup_prefix"`
}

// OutputConfig controls the curated output.
type OutputConfig struct {
	// Parquet writes a Parquet sidecar next to each curated CSV when true.
	Parquet bool `yaml:"parquet"`
	// ParquetCompression is one of "SNAPPY", "GZIP", "UNCOMPRESSED".
	ParquetCompression string `yaml:"parquet_compression"`
}

// HTTPConfig holds settings of the feed HTTP client.
type HTTPConfig struct {
	TimeoutSeconds        int     `yaml:"timeout_seconds"`
	MaxRetries            int     `yaml:"max_retries"`
	RetryDelayMillis      int     `yaml:"retry_delay_millis"`
	Multiplier            float64 `yaml:"multiplier"`
	BreakerTimeoutSeconds int     `yaml:"breaker_timeout_seconds"`
}

// TaxiFeedConfig configures the Socrata trip feed.
type TaxiFeedConfig struct {
	Endpoint string `yaml:"endpoint"`
	AppToken string `yaml:"app_token"`
	Limit    int    `yaml:"limit"`
}

// WeatherFeedConfig configures the Open-Meteo archive feed.
type WeatherFeedConfig struct {
	Endpoint  string  `yaml:"endpoint"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Hourly    string  `yaml:"hourly"`
}

// FeedsConfig groups the source feeds.
type FeedsConfig struct {
	// LagMonths is how far back the default extraction date lies.
	LagMonths int               `yaml:"lag_months"`
	HTTP      HTTPConfig        `yaml:"http"`
	Taxi      TaxiFeedConfig    `yaml:"taxi"`
	Weather   WeatherFeedConfig `yaml:"weather"`
}

// LedgerConfig configures the run ledger.
type LedgerConfig struct {
	// DatabaseRef is the name of the entry under "database". Empty keeps the ledger in memory.
	DatabaseRef string `yaml:"database_ref"`
	// AutoMigrate applies pending schema migrations on startup.
	AutoMigrate bool `yaml:"auto_migrate"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// Protocol is "http" or "grpc".
	Protocol    string `yaml:"protocol"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// OTLPMetricsConfig configures the push of run metrics to an OTLP collector.
// Prometheus metrics are always collected; this adds a second, pushed copy.
type OTLPMetricsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Protocol        string `yaml:"protocol"`
	Insecure        bool   `yaml:"insecure"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// MetricsConfig configures Prometheus metrics and tracing.
type MetricsConfig struct {
	// ListenAddress is where the schedule command serves /metrics and /healthz. Empty disables the server.
	ListenAddress string            `yaml:"listen_address"`
	Tracing       TracingConfig     `yaml:"tracing"`
	OTLP          OTLPMetricsConfig `yaml:"otlp"`
}

// ScheduleConfig configures the cron trigger.
type ScheduleConfig struct {
	ExtractCron   string `yaml:"extract_cron"`
	TransformCron string `yaml:"transform_cron"`
	// LockFile guards against overlapping transform invocations.
	LockFile string `yaml:"lock_file"`
}

// EtlConfig holds all configuration under the "etl" top-level key.
type EtlConfig struct {
	System   SystemConfig   `yaml:"system"`
	Layout   LayoutConfig   `yaml:"layout"`
	Output   OutputConfig   `yaml:"output"`
	Feeds    FeedsConfig    `yaml:"feeds"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Schedule ScheduleConfig `yaml:"schedule"`
	// StorageConfigs holds named blob store adapter configurations, decoded by the storage providers.
	StorageConfigs map[string]interface{} `yaml:"storage"`
	// DatabaseConfigs holds named database configurations, decoded by the gorm providers.
	DatabaseConfigs map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Etl            EtlConfig      `yaml:"etl"`
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
// The defaults reproduce the persisted layout of the pipeline.
func NewConfig() *Config {
	return &Config{
		Etl: EtlConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO", Format: "console"},
			},
			Layout: LayoutConfig{
				StorageRef:              "default",
				TaxiPendingPrefix:       "raw_data/to_processed/taxi_data/",
				WeatherPendingPrefix:    "raw_data/to_processed/weather_data/",
				TaxiArchivePrefix:       "raw_data/processed/taxi_data/",
				WeatherArchivePrefix:    "raw_data/processed/weather_data/",
				TaxiCuratedPrefix:       "transformed_data/taxi_trips/",
				WeatherCuratedPrefix:    "transformed_data/weather/",
				CompanyMasterPrefix:     "transformed_data/company/",
				PaymentTypeMasterPrefix: "transformed_data/payment_type/",
				MasterBackupPrefix:      "transformed_data/master_table_previous_version/",
			},
			Output: OutputConfig{
				ParquetCompression: "SNAPPY",
			},
			Feeds: FeedsConfig{
				LagMonths: 8,
				HTTP: HTTPConfig{
					TimeoutSeconds:        60,
					MaxRetries:            3,
					RetryDelayMillis:      1000,
					Multiplier:            2.0,
					BreakerTimeoutSeconds: 60,
				},
				Taxi: TaxiFeedConfig{
					Endpoint: "https://data.cityofchicago.org/resource/wrvz-psew.json",
					Limit:    30000,
				},
				Weather: WeatherFeedConfig{
					Endpoint:  "https://archive-api.open-meteo.com/v1/era5",
					Latitude:  41.85,
					Longitude: -87.65,
					Hourly:    "temperature_2m,wind_speed_10m,precipitation,rain",
				},
			},
			Metrics: MetricsConfig{
				Tracing: TracingConfig{ServiceName: "taxietl", Protocol: "http"},
				OTLP:    OTLPMetricsConfig{Protocol: "http", IntervalSeconds: 30},
			},
			Schedule: ScheduleConfig{
				ExtractCron:   "0 5 * * *",
				TransformCron: "30 5 * * *",
				LockFile:      "taxietl.lock",
			},
			StorageConfigs:  map[string]interface{}{},
			DatabaseConfigs: map[string]interface{}{},
		},
	}
}
