package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
)

// Helper function to create a file execution inside a fresh run
func newTestFileExecution(batchType string) (*model.RunExecution, *model.FileExecution) {
	re := model.NewRunExecution("test")
	return re, re.NewFileExecution(batchType, batchType+"_raw_2024-01-01.json")
}

func TestFileExecution_TransitionTo(t *testing.T) {
	// Trip files pass through every state.
	_, fe := newTestFileExecution("taxi")
	for _, next := range []model.FileState{model.FileStateRead, model.FileStateNormalized, model.FileStateReconciled, model.FileStateTransformed, model.FileStateArchived} {
		require.NoError(t, fe.TransitionTo(next))
		assert.Equal(t, next, fe.State)
	}
	assert.True(t, fe.IsArchived())
	assert.NotNil(t, fe.EndTime)

	// Weather files skip RECONCILED.
	_, fe = newTestFileExecution("weather")
	require.NoError(t, fe.TransitionTo(model.FileStateRead))
	require.NoError(t, fe.TransitionTo(model.FileStateNormalized))
	require.NoError(t, fe.TransitionTo(model.FileStateTransformed))

	// --- Invalid Transitions ---

	// PENDING -> TRANSFORMED
	_, fe = newTestFileExecution("taxi")
	err := fe.TransitionTo(model.FileStateTransformed)
	assert.Error(t, err)
	assert.Equal(t, model.FileStatePending, fe.State)

	// READ -> PENDING (no way back)
	_, fe = newTestFileExecution("taxi")
	require.NoError(t, fe.TransitionTo(model.FileStateRead))
	assert.Error(t, fe.TransitionTo(model.FileStatePending))

	// A failed file does not move any more.
	_, fe = newTestFileExecution("taxi")
	require.NoError(t, fe.TransitionTo(model.FileStateRead))
	fe.MarkAsFailed(errors.New("boom"))
	assert.Error(t, fe.TransitionTo(model.FileStateNormalized))
	assert.False(t, fe.IsArchived())
}

func TestFileExecution_MarkAsFailed(t *testing.T) {
	_, fe := newTestFileExecution("taxi")
	require.NoError(t, fe.TransitionTo(model.FileStateRead))

	fe.MarkAsFailed(exception.NewMalformedInputError("normalize", "trip batch is not valid JSON", errors.New("unexpected EOF")))

	assert.True(t, fe.Failed)
	assert.Equal(t, model.FileStateRead, fe.State, "the reached state is kept")
	assert.Equal(t, "malformed_input", fe.ErrorKind)
	assert.Contains(t, fe.ErrorMessage, "trip batch is not valid JSON")
	assert.Contains(t, fe.ErrorMessage, "unexpected EOF")
}

func TestRunExecution_Finish(t *testing.T) {
	// All files archived.
	re := model.NewRunExecution("cli")
	fe := re.NewFileExecution("taxi", "a.json")
	for _, next := range []model.FileState{model.FileStateRead, model.FileStateNormalized, model.FileStateReconciled, model.FileStateTransformed, model.FileStateArchived} {
		require.NoError(t, fe.TransitionTo(next))
	}
	fe.NewCompanies, fe.NewPaymentTypes = 2, 1
	re.Finish(nil)
	assert.Equal(t, model.RunStatusCompleted, re.Status)
	assert.Equal(t, 1, re.FilesArchived)
	assert.Equal(t, 2, re.NewCompanies)
	assert.Equal(t, 1, re.NewPaymentTypes)
	assert.True(t, re.Status.IsFinished())
	assert.Empty(t, re.Failures)

	// One failed file.
	re = model.NewRunExecution("cli")
	ok := re.NewFileExecution("weather", "w.json")
	require.NoError(t, ok.TransitionTo(model.FileStateRead))
	require.NoError(t, ok.TransitionTo(model.FileStateNormalized))
	require.NoError(t, ok.TransitionTo(model.FileStateTransformed))
	require.NoError(t, ok.TransitionTo(model.FileStateArchived))
	bad := re.NewFileExecution("taxi", "t.json")
	bad.MarkAsFailed(errors.New("boom"))
	re.Finish(nil)
	assert.Equal(t, model.RunStatusCompletedWithErrors, re.Status)
	assert.Equal(t, 2, re.FilesTotal)
	assert.Equal(t, 1, re.FilesFailed)
	assert.Equal(t, model.FailureList{"t.json: boom"}, re.Failures)

	// A run level error fails the run.
	re = model.NewRunExecution("cli")
	re.Finish(errors.New("listing failed"))
	assert.Equal(t, model.RunStatusFailed, re.Status)
	assert.Contains(t, re.Failures, "listing failed")
}

func TestRunExecution_AddFailureExceptionSkipsDuplicates(t *testing.T) {
	re := model.NewRunExecution("cli")
	re.AddFailureException(errors.New("same"))
	re.AddFailureException(errors.New("same"))
	re.AddFailureException(nil)
	assert.Len(t, re.Failures, 1)
}

func TestFailureList_ValueScan(t *testing.T) {
	v, err := model.FailureList{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)

	var fl model.FailureList
	require.NoError(t, fl.Scan([]byte(`["x"]`)))
	assert.Equal(t, model.FailureList{"x"}, fl)
	require.NoError(t, fl.Scan(nil))
	assert.Empty(t, fl)
	assert.Error(t, fl.Scan(42))
}
