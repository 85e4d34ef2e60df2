// Package inmemory provides an in-memory implementation of the RunRepository interface.
// It keeps the ledger of the current process only, which is what a run without a
// configured ledger database gets.
package inmemory

import (
	"sync"

	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/repository"
)

// InMemoryRunRepository is an in-memory implementation of the RunRepository interface.
// It stores copies, so later changes to the caller's objects are only visible after an update.
type InMemoryRunRepository struct {
	runExecutions  map[string]*model.RunExecution
	fileExecutions map[string]*model.FileExecution
	mu             sync.RWMutex // Mutex to protect concurrent access to maps.
}

var _ repository.RunRepository = (*InMemoryRunRepository)(nil)

// NewInMemoryRunRepository creates and initializes a new instance of InMemoryRunRepository.
func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{
		runExecutions:  make(map[string]*model.RunExecution),
		fileExecutions: make(map[string]*model.FileExecution),
	}
}

// Close releases resources used by the repository.
// As an in-memory repository, it holds no external resources, so this method always returns nil.
func (r *InMemoryRunRepository) Close() error {
	return nil
}

func cloneRun(re *model.RunExecution) *model.RunExecution {
	c := *re
	c.Failures = append(model.FailureList(nil), re.Failures...)
	c.FileExecutions = make([]*model.FileExecution, 0)
	return &c
}

func cloneFile(fe *model.FileExecution) *model.FileExecution {
	c := *fe
	c.RunExecution = nil
	return &c
}
