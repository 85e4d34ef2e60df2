package lifecycle

import "go.uber.org/fx"

// Module provides the Manager.
var Module = fx.Options(
	fx.Provide(NewManager),
)
