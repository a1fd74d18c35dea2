package logging

import (
	"context"
	"os"

	"steelpos/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// fileSink is the optional JSON log file. file is nil when LOG_FILE is empty.
type fileSink struct {
	file *os.File
}

func newFileSink(lc fx.Lifecycle, cfg config.Config) (*fileSink, error) {
	file, err := OpenLogFile(cfg.LogFile)
	if err != nil {
		return nil, err
	}
	sink := &fileSink{file: file}
	if file != nil {
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return file.Close()
			},
		})
	}
	return sink, nil
}

// Module tees the application logger into the log file and names it after
// the client. Decorations inside an fx.Module stay in that module, so this is
// a plain option set.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(newFileSink),
		fx.Decorate(func(lc fx.Lifecycle, base *zap.Logger, cfg config.Config, sink *fileSink) *zap.Logger {
			logger := AttachFileLogger(base, sink.file, cfg.Debug).Named("steelpos")
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					_ = logger.Sync()
					return nil
				},
			})
			return logger
		}),
	)
}
