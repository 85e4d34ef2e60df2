package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// Package config provides utilities for loading and managing application configuration
// from YAML and environment variables.

const moduleName = "config"

// legacyTokenEnv is the variable the trip feed token has always been read from.
const legacyTokenEnv = "CHICAGO_API_TOKEN"

// LoadConfig builds the configuration in four layers: NewConfig defaults, the YAML document
// (after ${VAR} expansion), environment variables named after the yaml tag path
// (e.g. ETL_LAYOUT_BUCKET) and finally validation.
// envFilePath names a .env file to load first; an empty path tries ./.env.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()

	expanded, err := NewOsEnvironmentExpander().Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewConfigError(moduleName, "failed to expand environment placeholders", err)
	}
	// Decoding onto the defaults keeps every key the document leaves out.
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.NewConfigError(moduleName, "failed to unmarshal config", err)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewConfigError(moduleName, "failed to load config from environment variables", err)
	}
	if cfg.Etl.Feeds.Taxi.AppToken == "" {
		cfg.Etl.Feeds.Taxi.AppToken = os.Getenv(legacyTokenEnv)
	}
	cfg.EmbeddedConfig = embeddedConfig

	if err := cfg.Validate(); err != nil {
		return nil, exception.NewConfigError(moduleName, "invalid configuration", err)
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML file from disk and passes it through LoadConfig.
func LoadConfigFile(envFilePath, path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, exception.NewConfigError(moduleName, fmt.Sprintf("failed to read config file '%s'", path), err)
	}
	return LoadConfig(envFilePath, raw)
}

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	l := c.Etl.Layout
	prefixes := map[string]string{
		"taxi_pending_prefix":        l.TaxiPendingPrefix,
		"weather_pending_prefix":     l.WeatherPendingPrefix,
		"taxi_archive_prefix":        l.TaxiArchivePrefix,
		"weather_archive_prefix":     l.WeatherArchivePrefix,
		"taxi_curated_prefix":        l.TaxiCuratedPrefix,
		"weather_curated_prefix":     l.WeatherCuratedPrefix,
		"company_master_prefix":      l.CompanyMasterPrefix,
		"payment_type_master_prefix": l.PaymentTypeMasterPrefix,
		"master_backup_prefix":       l.MasterBackupPrefix,
	}
	for name, p := range prefixes {
		if p == "" || !strings.HasSuffix(p, "/") {
			return fmt.Errorf("layout.%s must be a non-empty prefix ending with '/', got '%s'", name, p)
		}
	}
	if l.TaxiPendingPrefix == l.TaxiArchivePrefix || l.WeatherPendingPrefix == l.WeatherArchivePrefix {
		return fmt.Errorf("archive prefixes must differ from pending prefixes")
	}
	if l.StorageRef == "" {
		return fmt.Errorf("layout.storage_ref must name a storage configuration")
	}
	if c.Etl.Feeds.LagMonths < 0 {
		return fmt.Errorf("feeds.lag_months must not be negative, got %d", c.Etl.Feeds.LagMonths)
	}
	switch strings.ToUpper(c.Etl.Output.ParquetCompression) {
	case "", "SNAPPY", "GZIP", "UNCOMPRESSED":
	default:
		return fmt.Errorf("output.parquet_compression '%s' is not supported", c.Etl.Output.ParquetCompression)
	}
	protocols := map[string]string{
		"metrics.tracing.protocol": c.Etl.Metrics.Tracing.Protocol,
		"metrics.otlp.protocol":    c.Etl.Metrics.OTLP.Protocol,
	}
	for name, p := range protocols {
		if p != "" && p != "http" && p != "grpc" {
			return fmt.Errorf("%s must be 'http' or 'grpc', got '%s'", name, p)
		}
	}
	return nil
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag path to determine the environment variable name.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets a string, int, float or bool field from its textual form.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
