package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		fx.Annotate(initCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(list, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(prune, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(status, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(sync, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(test, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(version, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
