// Package providers contains dependency injection providers for the ConvoMark host daemon.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/convomarkapp/convomark-host/internal/config"
	"github.com/convomarkapp/convomark-host/internal/logger"
)

// ProvideConfig provides the daemon configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting ConvoMark host",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
		"socket_path", cfg.RPC.SocketPath,
		"serve_stdio", cfg.RPC.ServeStdio,
	)

	return log, nil
}
