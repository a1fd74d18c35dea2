package metrics

import (
	"context"

	"steelpos/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"metrics",
		fx.Provide(New),
		fx.Invoke(func(lc fx.Lifecycle, m *Metrics, cfg config.Config, logger *zap.Logger) {
			if cfg.MetricsFile == "" {
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
						logger.Warn("metrics not written", zap.Error(err))
					}
					return nil
				},
			})
		}),
	)
}
