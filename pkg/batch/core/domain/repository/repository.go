// Package repository defines the persistence contract of the run ledger.
package repository

// RunRepository records every run and the lifecycle of every file it processed.
// It embeds smaller repository interfaces to separate concerns.
type RunRepository interface {
	RunExecution  // Embeds the RunExecution interface (definition in run_execution.go)
	FileExecution // Embeds the FileExecution interface (definition in file_execution.go)

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
