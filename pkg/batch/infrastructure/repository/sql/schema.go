package sql

import (
	"time"

	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

// RunExecutionEntity is the persisted form of model.RunExecution.
type RunExecutionEntity struct {
	ID              string `gorm:"primaryKey"`
	Trigger         string `gorm:"column:trigger_name"`
	Status          model.RunStatus
	StartTime       time.Time
	EndTime         *time.Time
	FilesTotal      int
	FilesArchived   int
	FilesFailed     int
	NewCompanies    int
	NewPaymentTypes int
	Failures        model.FailureList
	LastUpdated     time.Time
}

func (RunExecutionEntity) TableName() string {
	return "etl_run_execution"
}

// FileExecutionEntity is the persisted form of model.FileExecution.
type FileExecutionEntity struct {
	ID              string `gorm:"primaryKey"`
	RunExecutionID  string
	Seq             int
	BatchType       string
	Key             string `gorm:"column:object_key"`
	State           model.FileState
	Failed          bool
	ErrorKind       string
	ErrorMessage    string
	CuratedKey      string
	ArchiveKey      string
	Rows            int `gorm:"column:row_count"`
	NewCompanies    int
	NewPaymentTypes int
	StartTime       time.Time
	EndTime         *time.Time
	LastUpdated     time.Time
}

func (FileExecutionEntity) TableName() string {
	return "etl_file_execution"
}
