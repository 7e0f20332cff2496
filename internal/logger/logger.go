package logger

import (
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/config"
)

var Module = fx.Provide(
	func(cfg *config.Config) (*zap.SugaredLogger, error) {
		return New(cfg.Env)
	},
)

// New builds the process logger. Development mode is human readable, anything
// else logs JSON.
func New(env string) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if env == config.EnvProduction {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, errors.Wrap(err, "build zap logger")
	}
	return l.Sugar(), nil
}
