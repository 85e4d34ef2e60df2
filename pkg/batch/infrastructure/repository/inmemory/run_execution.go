package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/repository"
)

// SaveRunExecution persists a new RunExecution.
// It returns an error if a RunExecution with the same ID already exists.
func (r *InMemoryRunRepository) SaveRunExecution(ctx context.Context, runExecution *model.RunExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runExecutions[runExecution.ID]; exists {
		return fmt.Errorf("RunExecution with ID %s already exists", runExecution.ID)
	}
	r.runExecutions[runExecution.ID] = cloneRun(runExecution)
	return nil
}

// UpdateRunExecution updates an existing RunExecution.
func (r *InMemoryRunRepository) UpdateRunExecution(ctx context.Context, runExecution *model.RunExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runExecutions[runExecution.ID]; !exists {
		return fmt.Errorf("%s: %w", runExecution.ID, repository.ErrRunExecutionNotFound)
	}
	r.runExecutions[runExecution.ID] = cloneRun(runExecution)
	return nil
}

// FindRunExecutionByID finds a RunExecution by its ID together with its files in processing order.
func (r *InMemoryRunRepository) FindRunExecutionByID(ctx context.Context, id string) (*model.RunExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.runExecutions[id]
	if !ok {
		return nil, repository.ErrRunExecutionNotFound
	}
	re := cloneRun(stored)
	for _, fe := range r.filesOf(id) {
		fe.RunExecution = re
		re.FileExecutions = append(re.FileExecutions, fe)
	}
	return re, nil
}

// FindRecentRunExecutions returns at most limit runs, newest first. A limit <= 0 returns all runs.
func (r *InMemoryRunRepository) FindRecentRunExecutions(ctx context.Context, limit int) ([]*model.RunExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*model.RunExecution, 0, len(r.runExecutions))
	for _, re := range r.runExecutions {
		runs = append(runs, cloneRun(re))
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartTime.Equal(runs[j].StartTime) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartTime.After(runs[j].StartTime)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
