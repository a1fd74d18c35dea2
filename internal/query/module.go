package query

import (
	"steelpos/internal/metrics"

	"github.com/juju/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"query",
		fx.Provide(func(m *metrics.Metrics, logger *zap.Logger) *Cache {
			return NewCache(clock.WallClock, m, logger)
		}),
	)
}
