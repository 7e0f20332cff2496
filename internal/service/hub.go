package service

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/supabase"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/validation"
)

var Module = fx.Provide(
	NewHub,
)

// Backend is the request scoped view of the data and auth service.
type Backend interface {
	SignInWithPassword(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	From(table string) *supabase.QueryBuilder
}

type Hub struct {
	rules  *validation.Rules
	logger *zap.SugaredLogger
}

func NewHub(rules *validation.Rules, l *zap.SugaredLogger) *Hub {
	return &Hub{
		rules:  rules,
		logger: l,
	}
}

// unknown logs the backend failure and hides it behind ErrUnknown.
func (s *Hub) unknown(err error, msg string, keysAndValues ...interface{}) error {
	s.logger.Errorw(msg, append(keysAndValues, "error", err)...)
	return ErrUnknown
}
