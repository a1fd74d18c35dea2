package llm

import "go.uber.org/fx"

// Module provides the assistant client; it is disabled without LLM settings.
func Module() fx.Option {
	return fx.Module(
		"llm",
		fx.Provide(NewClient),
	)
}
