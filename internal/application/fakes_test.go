package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/artesanato/internal/domain/entity"
	repo "github.com/oksasatya/artesanato/internal/domain/repository"
)

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]entity.User
	creates int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]entity.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.byID[u.ID] = *u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := r.GetByEmail(ctx, email)
	return u != nil, err
}

type memItemRepo struct {
	mu      sync.Mutex
	byID    map[string]entity.Item
	creates int
	updates int
	sumErr  error
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{byID: map[string]entity.Item{}}
}

func (r *memItemRepo) Create(_ context.Context, it *entity.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	it.ID = uuid.NewString()
	it.CreatedAt = time.Now()
	it.UpdatedAt = it.CreatedAt
	r.byID[it.ID] = *it
	return nil
}

func (r *memItemRepo) Update(_ context.Context, it *entity.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if _, ok := r.byID[it.ID]; !ok {
		return repo.ErrNotFound
	}
	it.UpdatedAt = time.Now()
	r.byID[it.ID] = *it
	return nil
}

func (r *memItemRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memItemRepo) FindByID(_ context.Context, id string) (*entity.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.byID[id]; ok {
		return &it, nil
	}
	return nil, nil
}

func (r *memItemRepo) UpdatePhoto(_ context.Context, id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	it.PhotoURL = url
	r.byID[id] = it
	return nil
}

func (r *memItemRepo) Search(_ context.Context, f repo.ItemFilter) ([]entity.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.Item{}
	for _, it := range r.byID {
		if it.UserID != f.UserID {
			continue
		}
		if f.Description != "" && !strings.Contains(strings.ToLower(it.Description), strings.ToLower(f.Description)) {
			continue
		}
		if (f.Month != 0 && it.Month != f.Month) || (f.Year != 0 && it.Year != f.Year) {
			continue
		}
		if (f.Kind != "" && it.Kind != f.Kind) || (f.Status != "" && it.Status != f.Status) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *memItemRepo) SumAmount(_ context.Context, userID string, kind entity.Kind, status entity.Status) (decimal.NullDecimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sumErr != nil {
		return decimal.NullDecimal{}, r.sumErr
	}
	var sum decimal.NullDecimal
	for _, it := range r.byID {
		if it.UserID == userID && it.Kind == kind && it.Status == status {
			sum.Decimal = sum.Decimal.Add(it.Amount)
			sum.Valid = true
		}
	}
	return sum, nil
}

func (r *memItemRepo) put(it entity.Item) entity.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	r.byID[it.ID] = it
	return it
}

type recordingPublisher struct {
	jobs []any
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, body any) error {
	p.jobs = append(p.jobs, body)
	return p.err
}

type fakeIndex struct {
	indexed map[string]entity.Item
	hits    []string
	err     error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{indexed: map[string]entity.Item{}}
}

func (f *fakeIndex) Index(_ context.Context, it *entity.Item) error {
	if f.err != nil {
		return f.err
	}
	f.indexed[it.ID] = *it
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	delete(f.indexed, id)
	return f.err
}

func (f *fakeIndex) Search(_ context.Context, _, _ string, _ int) ([]string, error) {
	return f.hits, f.err
}

type fakeStore struct {
	path        string
	contentType string
	body        string
}

func (s *fakeStore) Upload(_ context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", errors.New("empty upload")
	}
	s.path, s.contentType, s.body = objectPath, contentType, string(b)
	return "https://cdn.test/" + objectPath, nil
}
