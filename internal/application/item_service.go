package application

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/artesanato/internal/domain/entity"
	repo "github.com/oksasatya/artesanato/internal/domain/repository"
	"github.com/oksasatya/artesanato/pkg/helpers"
)

// ItemIndex mirrors items into a full-text index.
type ItemIndex interface {
	Index(ctx context.Context, it *entity.Item) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, userID, query string, size int) ([]string, error)
}

// ObjectStore stores uploaded files and returns their public URL.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type ItemService struct {
	Repo   repo.ItemRepository
	Index  ItemIndex
	Photos ObjectStore
	Logger *logrus.Logger
}

func NewItemService(repo repo.ItemRepository, index ItemIndex, photos ObjectStore, logger *logrus.Logger) *ItemService {
	return &ItemService{Repo: repo, Index: index, Photos: photos, Logger: logger}
}

// Create validates the item, forces it to PENDING and stores it.
func (s *ItemService) Create(ctx context.Context, it *entity.Item) (*entity.Item, error) {
	if err := it.Validate(); err != nil {
		return nil, err
	}
	it.Status = entity.StatusPending
	if err := s.Repo.Create(ctx, it); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.reindex(ctx, it)
	return it, nil
}

// Update re-validates and stores an already persisted item.
func (s *ItemService) Update(ctx context.Context, it *entity.Item) (*entity.Item, error) {
	if it.ID == "" {
		return nil, ErrIdentifierRequired
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, it); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	s.reindex(ctx, it)
	return it, nil
}

// UpdateStatus sets the status and then follows the full Update path.
func (s *ItemService) UpdateStatus(ctx context.Context, it *entity.Item, status entity.Status) (*entity.Item, error) {
	it.Status = status
	return s.Update(ctx, it)
}

func (s *ItemService) Delete(ctx context.Context, it *entity.Item) error {
	if it.ID == "" {
		return ErrIdentifierRequired
	}
	if err := s.Repo.Delete(ctx, it.ID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if s.Index != nil {
		if err := s.Index.Delete(ctx, it.ID); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("item_id", it.ID).Warn("search delete failed")
		}
	}
	return nil
}

// FindByID returns (nil, nil) when the item does not exist.
func (s *ItemService) FindByID(ctx context.Context, id string) (*entity.Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return s.Repo.FindByID(ctx, id)
}

// Search lists the owner's items matching every populated filter field.
func (s *ItemService) Search(ctx context.Context, f repo.ItemFilter) ([]entity.Item, error) {
	if f.UserID == "" {
		return nil, ErrOwnerRequired
	}
	return s.Repo.Search(ctx, f)
}

// Balance is settled credits minus settled debits. The caller must have
// checked that the user exists.
func (s *ItemService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	credits, err := s.Repo.SumAmount(ctx, userID, entity.KindCredit, entity.StatusSettled)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum credits: %w", err)
	}
	debits, err := s.Repo.SumAmount(ctx, userID, entity.KindDebit, entity.StatusSettled)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum debits: %w", err)
	}
	return orZero(credits).Sub(orZero(debits)), nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// UploadPhoto stores a picture of the item and records its URL.
func (s *ItemService) UploadPhoto(ctx context.Context, it *entity.Item, r io.Reader, filename, contentType string) (string, error) {
	if it.ID == "" {
		return "", ErrIdentifierRequired
	}
	if s.Photos == nil {
		return "", ErrPhotoStorageDisabled
	}
	objectPath := helpers.ItemPhotoPath(it.UserID, it.ID, uuid.NewString(), filename)
	url, err := s.Photos.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	if err := s.Repo.UpdatePhoto(ctx, it.ID, url); err != nil {
		return "", fmt.Errorf("save photo url: %w", err)
	}
	it.PhotoURL = url
	s.reindex(ctx, it)
	return url, nil
}

// TextSearch runs a full-text query over the owner's items. Hits whose row
// is gone are skipped.
func (s *ItemService) TextSearch(ctx context.Context, userID, query string, size int) ([]entity.Item, error) {
	if s.Index == nil {
		return []entity.Item{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	ids, err := s.Index.Search(ctx, userID, query, size)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	out := make([]entity.Item, 0, len(ids))
	for _, id := range ids {
		it, err := s.Repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if it != nil && it.UserID == userID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (s *ItemService) reindex(ctx context.Context, it *entity.Item) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, it); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("item_id", it.ID).Warn("search index failed")
	}
}
