package cli

import "go.uber.org/fx"

// Module provides the operator Runner over the pos and llm clients.
func Module() fx.Option {
	return fx.Module(
		"cli",
		fx.Provide(NewRunner),
	)
}
