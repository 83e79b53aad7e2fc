package repository

import (
	"context"

	"github.com/oksasatya/artesanato/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
// Lookups return (nil, nil) when no row matches.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
