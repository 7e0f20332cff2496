package service

import (
	"context"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/models"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/reconcile"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/supabase"
)

const (
	fieldFirstName = "firstName"
	fieldLastName  = "lastName"
)

// Account returns the caller's profile. A missing row is an empty profile.
func (s *Hub) Account(ctx context.Context, sb Backend, user *supabase.User) (*models.User, error) {
	users := make([]models.User, 0)
	err := sb.From(models.TableUsers).
		Select("id", "email", "first_name", "last_name").
		Eq("email", user.Email).
		Limit(1).
		Execute(ctx, &users)
	if err != nil {
		return nil, s.unknown(err, "get account", "email", user.Email)
	}
	if len(users) == 0 {
		return &models.User{ID: user.ID, Email: user.Email}, nil
	}
	return &users[0], nil
}

// UpdateAccount validates and stores the caller's names. Nothing is written
// when the names equal the stored ones.
func (s *Hub) UpdateAccount(ctx context.Context, sb Backend, user *supabase.User, req *models.NameReq) (*models.User, error) {
	if fields := s.rules.Name(req); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	current, err := s.Account(ctx, sb, user)
	if err != nil {
		return nil, err
	}

	editor := reconcile.New(nil, map[string]string{
		fieldFirstName: current.First(),
		fieldLastName:  current.Last(),
	})
	editor.SetField(fieldFirstName, req.FirstName)
	editor.SetField(fieldLastName, req.LastName)
	if !editor.IsDirty() {
		return current, nil
	}

	updated := make([]models.User, 0)
	err = sb.From(models.TableUsers).
		Update(map[string]string{
			"first_name": editor.Field(fieldFirstName),
			"last_name":  editor.Field(fieldLastName),
		}).
		Eq("email", user.Email).
		Execute(ctx, &updated)
	if err != nil {
		return nil, s.unknown(err, "update account", "email", user.Email)
	}
	if len(updated) == 0 {
		return nil, s.unknown(errNoRows, "update account", "email", user.Email)
	}
	return &updated[0], nil
}
