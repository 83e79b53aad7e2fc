package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/oksasatya/artesanato/internal/domain/entity"
)

// ItemFilter selects items for Search. UserID is mandatory; every other
// zero-valued field is ignored.
type ItemFilter struct {
	UserID      string
	Description string // case-insensitive substring
	Month       int
	Year        int
	Kind        entity.Kind
	Status      entity.Status
}

// ItemRepository persists items. FindByID returns (nil, nil) when absent.
type ItemRepository interface {
	Create(ctx context.Context, it *entity.Item) error
	Update(ctx context.Context, it *entity.Item) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entity.Item, error)
	Search(ctx context.Context, f ItemFilter) ([]entity.Item, error)
	UpdatePhoto(ctx context.Context, id, url string) error

	// SumAmount totals the amounts of a user's items of the given kind and
	// status. Valid is false when no row matched.
	SumAmount(ctx context.Context, userID string, kind entity.Kind, status entity.Status) (decimal.NullDecimal, error)
}
