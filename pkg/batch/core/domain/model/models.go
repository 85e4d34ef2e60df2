package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/chicago-taxi-etl/pkg/batch/support/util/logger"
)

// RunStatus represents the state of one pipeline invocation.
type RunStatus string

const (
	RunStatusStarted             RunStatus = "STARTED"
	RunStatusCompleted           RunStatus = "COMPLETED"
	RunStatusCompletedWithErrors RunStatus = "COMPLETED_WITH_ERRORS"
	RunStatusFailed              RunStatus = "FAILED"
)

// String returns the string representation of the RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// IsFinished checks if the RunStatus represents a finished state.
func (s RunStatus) IsFinished() bool {
	return s != RunStatusStarted
}

// FileState is the lifecycle state of one raw file within a run.
// The order of the constants is the only legal order of transitions.
type FileState string

const (
	FileStatePending     FileState = "PENDING"
	FileStateRead        FileState = "READ"
	FileStateNormalized  FileState = "NORMALIZED"
	FileStateReconciled  FileState = "RECONCILED"
	FileStateTransformed FileState = "TRANSFORMED"
	FileStateArchived    FileState = "ARCHIVED"
)

var fileStateOrder = map[FileState]int{
	FileStatePending:     0,
	FileStateRead:        1,
	FileStateNormalized:  2,
	FileStateReconciled:  3,
	FileStateTransformed: 4,
	FileStateArchived:    5,
}

// String returns the string representation of the FileState.
func (s FileState) String() string {
	return string(s)
}

// isValidFileTransition allows moving forward through the sequence. Skipping RECONCILED
// (weather files) is the only permitted jump.
func isValidFileTransition(current, next FileState) bool {
	c, ok1 := fileStateOrder[current]
	n, ok2 := fileStateOrder[next]
	if !ok1 || !ok2 {
		return false
	}
	if n == c+1 {
		return true
	}
	return current == FileStateNormalized && next == FileStateTransformed
}

// FailureList holds a list of error messages.
type FailureList []string

// Value implements the `driver.Valuer` interface, converting FailureList to a JSON string.
func (fl FailureList) Value() (driver.Value, error) {
	if fl == nil {
		return "[]", nil
	}
	data, err := json.Marshal(fl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to FailureList.
func (fl *FailureList) Scan(value interface{}) error {
	if value == nil {
		*fl = make(FailureList, 0)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for FailureList: %T", value)
	}
	if len(b) == 0 {
		*fl = make(FailureList, 0)
		return nil
	}
	if err := json.Unmarshal(b, fl); err != nil {
		return fmt.Errorf("failed to unmarshal FailureList JSON: %w", err)
	}
	return nil
}

// RunExecution is one invocation of the transform pipeline over every pending file.
type RunExecution struct {
	ID              string
	Trigger         string
	Status          RunStatus
	StartTime       time.Time
	EndTime         *time.Time
	FilesTotal      int
	FilesArchived   int
	FilesFailed     int
	NewCompanies    int
	NewPaymentTypes int
	Failures        FailureList
	LastUpdated     time.Time
	FileExecutions  []*FileExecution
}

// FileExecution is the progress of one raw file through the lifecycle.
type FileExecution struct {
	ID              string
	RunExecutionID  string
	RunExecution    *RunExecution
	Seq             int // Position of the file within its run.
	BatchType       string
	Key             string
	State           FileState
	Failed          bool
	ErrorKind       string
	ErrorMessage    string
	CuratedKey      string
	ArchiveKey      string
	Rows            int
	NewCompanies    int
	NewPaymentTypes int
	StartTime       time.Time
	EndTime         *time.Time
	LastUpdated     time.Time
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// NewRunExecution creates a started RunExecution.
func NewRunExecution(trigger string) *RunExecution {
	now := time.Now()
	return &RunExecution{
		ID:             NewID(),
		Trigger:        trigger,
		Status:         RunStatusStarted,
		StartTime:      now,
		Failures:       make(FailureList, 0),
		LastUpdated:    now,
		FileExecutions: make([]*FileExecution, 0),
	}
}

// NewFileExecution creates a pending FileExecution attached to run.
func (re *RunExecution) NewFileExecution(batchType, key string) *FileExecution {
	now := time.Now()
	fe := &FileExecution{
		ID:             NewID(),
		RunExecutionID: re.ID,
		RunExecution:   re,
		Seq:            len(re.FileExecutions),
		BatchType:      batchType,
		Key:            key,
		State:          FileStatePending,
		StartTime:      now,
		LastUpdated:    now,
	}
	re.FileExecutions = append(re.FileExecutions, fe)
	re.FilesTotal++
	return fe
}

// TransitionTo safely advances the state of the FileExecution.
func (fe *FileExecution) TransitionTo(next FileState) error {
	if fe.Failed {
		return fmt.Errorf("FileExecution (ID: %s): cannot transition a failed file to %s", fe.ID, next)
	}
	if !isValidFileTransition(fe.State, next) {
		return fmt.Errorf("FileExecution (ID: %s): invalid state transition: %s -> %s", fe.ID, fe.State, next)
	}
	fe.State = next
	fe.LastUpdated = time.Now()
	if next == FileStateArchived {
		end := fe.LastUpdated
		fe.EndTime = &end
	}
	return nil
}

// MarkAsFailed records the error. The file keeps the state it reached, which tells
// whether a curated object was already written before the failure.
func (fe *FileExecution) MarkAsFailed(err error) {
	fe.Failed = true
	now := time.Now()
	fe.EndTime = &now
	fe.LastUpdated = now
	if err != nil {
		fe.ErrorKind = exception.KindOf(err).String()
		fe.ErrorMessage = err.Error()
	}
}

// IsArchived reports whether the file completed the whole lifecycle.
func (fe *FileExecution) IsArchived() bool {
	return fe.State == FileStateArchived && !fe.Failed
}

// AddFailureException adds error information to RunExecution. It avoids adding duplicate errors.
func (re *RunExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	errMsg := exception.ExtractErrorMessage(err)
	for _, existing := range re.Failures {
		if existing == errMsg {
			logger.Debugf("Skipped adding duplicate error '%s' to RunExecution (ID: %s).", errMsg, re.ID)
			return
		}
	}
	re.Failures = append(re.Failures, errMsg)
	re.LastUpdated = time.Now()
}

// Finish aggregates the file outcomes and sets the final status.
// A run fails only when err (a run-level error) is non-nil.
func (re *RunExecution) Finish(err error) {
	re.FilesArchived, re.FilesFailed = 0, 0
	re.NewCompanies, re.NewPaymentTypes = 0, 0
	for _, fe := range re.FileExecutions {
		if fe.IsArchived() {
			re.FilesArchived++
			re.NewCompanies += fe.NewCompanies
			re.NewPaymentTypes += fe.NewPaymentTypes
		}
		if fe.Failed {
			re.FilesFailed++
			re.AddFailureException(fmt.Errorf("%s: %s", fe.Key, fe.ErrorMessage))
		}
	}

	switch {
	case err != nil:
		re.Status = RunStatusFailed
		re.AddFailureException(err)
	case re.FilesFailed > 0:
		re.Status = RunStatusCompletedWithErrors
	default:
		re.Status = RunStatusCompleted
	}
	now := time.Now()
	re.EndTime = &now
	re.LastUpdated = now
}

// Duration returns the elapsed run time, or the time since start for an unfinished run.
func (re *RunExecution) Duration() time.Duration {
	if re.EndTime == nil {
		return time.Since(re.StartTime)
	}
	return re.EndTime.Sub(re.StartTime)
}
