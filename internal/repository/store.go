package repository

import (
	"context"

	"go-minimal-auth/internal/model"
)

// UserStore is the persistence contract for users. FindByUsername reports
// absence through the bool, not an error. Insert maps a uniqueness violation
// to model.ErrUserAlreadyExists and transport failures to model.ErrStore.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (model.User, bool, error)
	Insert(ctx context.Context, username string, passwordHash string) (model.User, error)
	ListUsernamesOrderedByCreation(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}
