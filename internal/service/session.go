package service

import (
	"context"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/models"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/supabase"
)

func (s *Hub) SignIn(ctx context.Context, sb Backend, req *models.SignInReq) error {
	if fields := s.rules.SignIn(req); fields != nil {
		return &ValidationError{Fields: fields}
	}

	if err := sb.SignInWithPassword(ctx, req.Email, req.Password); err != nil {
		if supabase.HasCode(err, supabase.CodeInvalidCredentials) {
			return ErrInvalidCredentials
		}
		return s.unknown(err, "sign in", "email", req.Email)
	}
	return nil
}

func (s *Hub) SignOut(ctx context.Context, sb Backend) error {
	if err := sb.SignOut(ctx); err != nil {
		return s.unknown(err, "sign out")
	}
	return nil
}
