// Package config provides core configuration structures and utilities.
// This file defines the expansion of ${VAR} placeholders inside configuration documents.
package config

import (
	"os"
)

// EnvironmentExpander expands environment variable placeholders within configuration data.
type EnvironmentExpander interface {
	// Expand replaces ${VAR} and $VAR placeholders in input.
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands placeholders from the process environment.
// Unset variables expand to an empty string. "$$" is kept as a literal "$".
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand implements EnvironmentExpander.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	expanded := os.Expand(string(input), func(name string) string {
		if name == "$" {
			return "$"
		}
		return os.Getenv(name)
	})
	return []byte(expanded), nil
}
