// Package exception provides the error types used by the ETL pipeline.
// Errors carry the module they originate from and a kind that decides how a run reacts:
// malformed input and type contract violations abort the current file only, partial
// pipeline failures leave the raw file pending so the next run reprocesses it.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a BatchError.
type Kind int

const (
	// KindGeneric is used for errors without a specific classification.
	KindGeneric Kind = iota
	// KindMalformedInput marks raw content that is not valid structured data or lacks a required attribute.
	KindMalformedInput
	// KindTypeContract marks an unexpected input shape handed to normalization.
	KindTypeContract
	// KindPartialPipeline marks a failure after the curated write but before archive or master update finished.
	KindPartialPipeline
	// KindConfig marks configuration errors.
	KindConfig
	// KindSource marks failures of the upstream HTTP feeds.
	KindSource
)

// String returns the kind name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed_input"
	case KindTypeContract:
		return "type_contract"
	case KindPartialPipeline:
		return "partial_pipeline"
	case KindConfig:
		return "config"
	case KindSource:
		return "source"
	default:
		return "generic"
	}
}

var (
	// ErrMalformedInput matches any BatchError of KindMalformedInput via errors.Is.
	ErrMalformedInput = &BatchError{Module: "exception", Message: "malformed input", Kind: KindMalformedInput}
	// ErrTypeContract matches any BatchError of KindTypeContract via errors.Is.
	ErrTypeContract = &BatchError{Module: "exception", Message: "type contract violation", Kind: KindTypeContract}
	// ErrPartialPipeline matches any BatchError of KindPartialPipeline via errors.Is.
	ErrPartialPipeline = &BatchError{Module: "exception", Message: "partial pipeline failure", Kind: KindPartialPipeline}
)

// BatchError is the error type raised while processing a batch.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "normalize", "lifecycle", "storage").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// Kind classifies the error.
	Kind Kind
	// isRetryable reports whether reprocessing from scratch is safe and expected to help.
	isRetryable bool
	// isSkippable reports whether the run may continue with the next file.
	isSkippable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError of KindGeneric.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return newBatchError(KindGeneric, module, message, originalErr, isSkippable, isRetryable)
}

// NewBatchErrorf creates a new generic BatchError with a formatted message.
// If the last argument is an error it is wrapped and not used for formatting.
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	if len(a) > 0 {
		if err, ok := a[len(a)-1].(error); ok {
			originalErr = err
			a = a[:len(a)-1]
		}
	}
	return newBatchError(KindGeneric, module, fmt.Sprintf(format, a...), originalErr, false, false)
}

// NewMalformedInputError reports raw content that cannot be parsed or misses a required attribute.
// The current file is aborted; the run moves on.
func NewMalformedInputError(module, message string, originalErr error) *BatchError {
	return newBatchError(KindMalformedInput, module, message, originalErr, true, false)
}

// NewTypeContractError reports an input whose shape is not a table of records.
func NewTypeContractError(module, message string, originalErr error) *BatchError {
	return newBatchError(KindTypeContract, module, message, originalErr, true, false)
}

// NewPartialPipelineError reports a failure after the curated output was written.
// The raw file stays pending and is reprocessed from scratch by the next run.
func NewPartialPipelineError(module, message string, originalErr error) *BatchError {
	return newBatchError(KindPartialPipeline, module, message, originalErr, true, true)
}

// NewConfigError reports invalid configuration.
func NewConfigError(module, message string, originalErr error) *BatchError {
	return newBatchError(KindConfig, module, message, originalErr, false, false)
}

// NewSourceError reports a failed call to an upstream feed.
func NewSourceError(module, message string, originalErr error) *BatchError {
	return newBatchError(KindSource, module, message, originalErr, false, true)
}

func newBatchError(kind Kind, module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		Kind:        kind,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// Is makes the kind sentinels match any BatchError of the same kind.
func (e *BatchError) Is(target error) bool {
	t, ok := target.(*BatchError)
	if !ok {
		return false
	}
	if t == ErrMalformedInput || t == ErrTypeContract || t == ErrPartialPipeline {
		return e.Kind == t.Kind
	}
	return e == t
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError determines if the error chain contains a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// KindOf returns the kind of the outermost BatchError in the chain, or KindGeneric.
func KindOf(err error) Kind {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindGeneric
}

// IsFatal reports whether an error must stop the whole run rather than only the current file.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return !be.IsRetryable() && !be.IsSkippable()
	}
	return false
}

// ExtractErrorMessage returns the Message of a BatchError or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
