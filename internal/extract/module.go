package extract

import "go.uber.org/fx"

// Module provides the Extractor.
var Module = fx.Options(
	fx.Provide(NewExtractor),
)
