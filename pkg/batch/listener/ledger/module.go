package ledger

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/application/port"
	"github.com/tigerroll/chicago-taxi-etl/pkg/batch/core/domain/repository"
)

func newListeners(repo repository.RunRepository) (port.RunExecutionListener, port.FileExecutionListener) {
	l := NewLedgerListener(repo)
	return l, l
}

// Module registers one LedgerListener in both listener groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		newListeners,
		fx.ResultTags(`group:"run_listeners"`, `group:"file_listeners"`),
	)),
)
