// Package config provides core configuration structures and utilities.
// This module defines Fx providers for configuration sections.
package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Etl.System.Logging
}

// NewLayoutConfigProvider extracts *LayoutConfig from *Config.
func NewLayoutConfigProvider(cfg *Config) *LayoutConfig {
	return &cfg.Etl.Layout
}

// NewFeedsConfigProvider extracts *FeedsConfig from *Config.
func NewFeedsConfigProvider(cfg *Config) *FeedsConfig {
	return &cfg.Etl.Feeds
}

// Module provides the configuration sections to Fx. *Config itself is supplied by main.
var Module = fx.Options(
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewLayoutConfigProvider),
	fx.Provide(NewFeedsConfigProvider),
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
)
