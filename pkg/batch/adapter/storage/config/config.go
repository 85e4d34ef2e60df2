// Package config holds the configuration of a blob store connection.
package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// StorageConfig holds the settings of one named blob store connection.
// Only the fields relevant to Type are read by the adapter.
type StorageConfig struct {
	Type       string `yaml:"type"`        // "local", "gcs" or "s3".
	BucketName string `yaml:"bucket_name"` // Default bucket when the caller passes an empty one.

	// local
	BaseDir string `yaml:"base_dir"`

	// gcs
	CredentialsFile string `yaml:"credentials_file"`
	ProjectID       string `yaml:"project_id"`

	// s3 (AWS S3 or any S3 compatible store such as MinIO)
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// Decode converts one raw entry of the "storage" configuration map into a StorageConfig.
func Decode(raw interface{}) (StorageConfig, error) {
	var cfg StorageConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to create storage config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode storage config: %w", err)
	}
	if cfg.Type == "" {
		return cfg, fmt.Errorf("storage config is missing 'type'")
	}
	return cfg, nil
}
