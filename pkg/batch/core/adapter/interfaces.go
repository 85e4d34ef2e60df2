// Package adapter defines the contracts shared by every external resource adapter
// (blob stores, ledger databases).
package adapter

// ResourceConnection represents a generic connection to any resource (e.g., database, storage).
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the type of the resource (e.g., "sqlite", "gcs", "s3").
	Type() string
	// Name returns the configured connection name (e.g., "default", "ledger").
	Name() string
}

// ResourceProvider hands out named connections of one resource type and owns their lifecycle.
type ResourceProvider[C ResourceConnection] interface {
	// GetConnection retrieves (or lazily opens) the connection with the given name.
	GetConnection(name string) (C, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the resource type handled by this provider.
	Type() string
}
