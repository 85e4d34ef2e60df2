package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/repository"
)

// SaveFileExecution persists a new FileExecution.
func (r *InMemoryRunRepository) SaveFileExecution(ctx context.Context, fileExecution *model.FileExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fileExecutions[fileExecution.ID]; exists {
		return fmt.Errorf("FileExecution with ID %s already exists", fileExecution.ID)
	}
	if _, exists := r.runExecutions[fileExecution.RunExecutionID]; !exists {
		return fmt.Errorf("FileExecution %s references unknown run %s: %w", fileExecution.ID, fileExecution.RunExecutionID, repository.ErrRunExecutionNotFound)
	}
	r.fileExecutions[fileExecution.ID] = cloneFile(fileExecution)
	return nil
}

// UpdateFileExecution updates an existing FileExecution.
func (r *InMemoryRunRepository) UpdateFileExecution(ctx context.Context, fileExecution *model.FileExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fileExecutions[fileExecution.ID]; !exists {
		return fmt.Errorf("%s: %w", fileExecution.ID, repository.ErrFileExecutionNotFound)
	}
	r.fileExecutions[fileExecution.ID] = cloneFile(fileExecution)
	return nil
}

// FindFileExecutionsByRunID returns the files of a run in processing order.
func (r *InMemoryRunRepository) FindFileExecutionsByRunID(ctx context.Context, runExecutionID string) ([]*model.FileExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filesOf(runExecutionID), nil
}

// filesOf collects copies of the files of a run sorted by Seq. The caller holds mu.
func (r *InMemoryRunRepository) filesOf(runExecutionID string) []*model.FileExecution {
	files := make([]*model.FileExecution, 0)
	for _, fe := range r.fileExecutions {
		if fe.RunExecutionID == runExecutionID {
			files = append(files, cloneFile(fe))
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Seq < files[j].Seq
	})
	return files
}
