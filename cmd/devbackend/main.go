// Command devbackend runs the local stand-in for the hosted auth and data
// service.
package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/config"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/emulator"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/logger"
)

func main() {
	fx.New(
		fx.Provide(
			config.NewEmulatorConfig,
			func(cfg *config.EmulatorConfig) (*zap.SugaredLogger, error) {
				return logger.New(cfg.Env)
			},
		),
		emulator.Module,
		fx.Invoke(func(*emulator.Server) {}),
	).Run()
}
