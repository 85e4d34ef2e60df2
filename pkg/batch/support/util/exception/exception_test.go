package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"

	"github.com/stretchr/testify/assert"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("connection refused")
	be := exception.NewBatchError("storage", "failed to upload", originalErr, false, true)

	assert.Equal(t, "storage", be.Module)
	assert.Equal(t, "failed to upload", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.Equal(t, exception.KindGeneric, be.Kind)
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Contains(t, be.Error(), "[storage] failed to upload: connection refused")
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("lifecycle", "file %s not found", "a.json")
	assert.Nil(t, be1.Unwrap())
	assert.Equal(t, "[lifecycle] file a.json not found", be1.Error())

	cause := errors.New("io error")
	be2 := exception.NewBatchErrorf("lifecycle", "read of %s failed", "b.json", cause)
	assert.Equal(t, cause, be2.Unwrap())
	assert.Equal(t, "read of b.json failed", be2.Message)
}

func TestKindSentinels(t *testing.T) {
	malformed := exception.NewMalformedInputError("normalize", "not json", errors.New("syntax"))
	contract := exception.NewTypeContractError("normalize", "not a table", nil)
	partial := exception.NewPartialPipelineError("lifecycle", "archive failed", errors.New("denied"))

	assert.ErrorIs(t, malformed, exception.ErrMalformedInput)
	assert.NotErrorIs(t, malformed, exception.ErrTypeContract)
	assert.ErrorIs(t, contract, exception.ErrTypeContract)
	assert.ErrorIs(t, partial, exception.ErrPartialPipeline)

	wrapped := fmt.Errorf("file raw/a.json: %w", malformed)
	assert.ErrorIs(t, wrapped, exception.ErrMalformedInput)
	assert.Equal(t, exception.KindMalformedInput, exception.KindOf(wrapped))
	assert.Equal(t, "malformed_input", exception.KindOf(wrapped).String())
}

func TestFlags(t *testing.T) {
	assert.True(t, exception.NewMalformedInputError("m", "x", nil).IsSkippable())
	assert.False(t, exception.NewMalformedInputError("m", "x", nil).IsRetryable())
	assert.True(t, exception.NewPartialPipelineError("m", "x", nil).IsRetryable())
	assert.True(t, exception.NewSourceError("m", "x", nil).IsRetryable())

	assert.True(t, exception.IsFatal(exception.NewConfigError("config", "bad", nil)))
	assert.False(t, exception.IsFatal(exception.NewMalformedInputError("m", "x", nil)))
	assert.False(t, exception.IsFatal(errors.New("plain")))
	assert.False(t, exception.IsFatal(nil))
}

func TestIsBatchErrorAndExtractMessage(t *testing.T) {
	be := exception.NewBatchError("join", "unknown company", nil, false, false)
	wrapped := fmt.Errorf("outer: %w", be)

	assert.True(t, exception.IsBatchError(wrapped))
	assert.False(t, exception.IsBatchError(errors.New("plain")))
	assert.Equal(t, "unknown company", exception.ExtractErrorMessage(wrapped))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
}
