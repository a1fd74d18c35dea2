package internal

import (
	"context"

	"steelpos/internal/api"
	"steelpos/internal/cli"
	"steelpos/internal/config"
	"steelpos/internal/llm"
	"steelpos/internal/logging"
	"steelpos/internal/metrics"
	"steelpos/internal/pos"
	"steelpos/internal/query"
	"steelpos/internal/session"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Run() error {
	var runner *cli.Runner

	app := fx.New(
		logger.Module(),
		logger.WithFxDefaultLogger(),
		config.Module(),
		logging.Module(),
		metrics.Module(),
		session.Module(),
		api.Module(),
		query.Module(),
		pos.Module(),
		llm.Module(),
		cli.Module(),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(ctx)
	}()

	return runner.Execute()
}
