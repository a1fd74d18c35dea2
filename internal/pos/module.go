package pos

import (
	"steelpos/internal/api"
	"steelpos/internal/config"
	"steelpos/internal/query"
	"steelpos/internal/session"

	"github.com/juju/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"pos",
		fx.Provide(func(cfg config.Config, c *api.Client, cache *query.Cache, store session.Store, logger *zap.Logger) *Client {
			// Cached data belongs to the signed-in user.
			c.OnUnauthenticated(cache.Clear)
			return NewClient(cfg, c, cache, store, clock.WallClock, logger)
		}),
	)
}
