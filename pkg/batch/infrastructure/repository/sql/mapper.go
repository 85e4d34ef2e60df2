package sql

import (
	model "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
)

// --- Mapper functions ---

func fromDomainRunExecution(re *model.RunExecution) *RunExecutionEntity {
	if re == nil {
		return nil
	}
	return &RunExecutionEntity{
		ID:              re.ID,
		Trigger:         re.Trigger,
		Status:          re.Status,
		StartTime:       re.StartTime,
		EndTime:         re.EndTime,
		FilesTotal:      re.FilesTotal,
		FilesArchived:   re.FilesArchived,
		FilesFailed:     re.FilesFailed,
		NewCompanies:    re.NewCompanies,
		NewPaymentTypes: re.NewPaymentTypes,
		Failures:        re.Failures,
		LastUpdated:     re.LastUpdated,
	}
}

func toDomainRunExecution(entity *RunExecutionEntity) *model.RunExecution {
	if entity == nil {
		return nil
	}
	failures := entity.Failures
	if failures == nil {
		failures = make(model.FailureList, 0)
	}
	return &model.RunExecution{
		ID:              entity.ID,
		Trigger:         entity.Trigger,
		Status:          entity.Status,
		StartTime:       entity.StartTime,
		EndTime:         entity.EndTime,
		FilesTotal:      entity.FilesTotal,
		FilesArchived:   entity.FilesArchived,
		FilesFailed:     entity.FilesFailed,
		NewCompanies:    entity.NewCompanies,
		NewPaymentTypes: entity.NewPaymentTypes,
		Failures:        failures,
		LastUpdated:     entity.LastUpdated,
		// FileExecutions are loaded separately by the repository.
		FileExecutions: make([]*model.FileExecution, 0),
	}
}

func fromDomainFileExecution(fe *model.FileExecution) *FileExecutionEntity {
	if fe == nil {
		return nil
	}
	return &FileExecutionEntity{
		ID:              fe.ID,
		RunExecutionID:  fe.RunExecutionID,
		Seq:             fe.Seq,
		BatchType:       fe.BatchType,
		Key:             fe.Key,
		State:           fe.State,
		Failed:          fe.Failed,
		ErrorKind:       fe.ErrorKind,
		ErrorMessage:    fe.ErrorMessage,
		CuratedKey:      fe.CuratedKey,
		ArchiveKey:      fe.ArchiveKey,
		Rows:            fe.Rows,
		NewCompanies:    fe.NewCompanies,
		NewPaymentTypes: fe.NewPaymentTypes,
		StartTime:       fe.StartTime,
		EndTime:         fe.EndTime,
		LastUpdated:     fe.LastUpdated,
	}
}

func toDomainFileExecution(entity *FileExecutionEntity) *model.FileExecution {
	if entity == nil {
		return nil
	}
	return &model.FileExecution{
		ID:              entity.ID,
		RunExecutionID:  entity.RunExecutionID,
		Seq:             entity.Seq,
		BatchType:       entity.BatchType,
		Key:             entity.Key,
		State:           entity.State,
		Failed:          entity.Failed,
		ErrorKind:       entity.ErrorKind,
		ErrorMessage:    entity.ErrorMessage,
		CuratedKey:      entity.CuratedKey,
		ArchiveKey:      entity.ArchiveKey,
		Rows:            entity.Rows,
		NewCompanies:    entity.NewCompanies,
		NewPaymentTypes: entity.NewPaymentTypes,
		StartTime:       entity.StartTime,
		EndTime:         entity.EndTime,
		LastUpdated:     entity.LastUpdated,
		// RunExecution is hydrated by the caller to avoid cycles.
	}
}
