package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/artesanato/internal/domain/entity"
	"github.com/oksasatya/artesanato/internal/domain/repository"
)

type ItemRepository struct {
	pool DBTX
}

func NewItemRepository(pool DBTX) *ItemRepository {
	return &ItemRepository{pool: pool}
}

const itemColumns = `id, description, month, year, amount, kind, status, user_id, photo_url, created_at, updated_at`

func scanItem(row pgx.Row) (entity.Item, error) {
	var (
		it     entity.Item
		kind   string
		status string
	)
	err := row.Scan(&it.ID, &it.Description, &it.Month, &it.Year, &it.Amount,
		&kind, &status, &it.UserID, &it.PhotoURL, &it.CreatedAt, &it.UpdatedAt)
	it.Kind = entity.Kind(kind)
	it.Status = entity.Status(status)
	return it, err
}

// Create inserts the item and reads back the stored amount, which carries the
// column's scale.
func (r *ItemRepository) Create(ctx context.Context, it *entity.Item) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO pecas (description, month, year, amount, kind, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, amount, created_at, updated_at
	`, it.Description, it.Month, it.Year, it.Amount, string(it.Kind), string(it.Status), it.UserID)

	return row.Scan(&it.ID, &it.Amount, &it.CreatedAt, &it.UpdatedAt)
}

func (r *ItemRepository) Update(ctx context.Context, it *entity.Item) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE pecas
		SET description = $1, month = $2, year = $3, amount = $4, kind = $5, status = $6, user_id = $7, updated_at = now()
		WHERE id = $8
		RETURNING amount, photo_url, created_at, updated_at
	`, it.Description, it.Month, it.Year, it.Amount, string(it.Kind), string(it.Status), it.UserID, it.ID)

	err := row.Scan(&it.Amount, &it.PhotoURL, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pecas WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

func (r *ItemRepository) UpdatePhoto(ctx context.Context, id, url string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE pecas SET photo_url = $1, updated_at = now() WHERE id = $2`, url, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (*entity.Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM pecas WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *ItemRepository) Search(ctx context.Context, f repository.ItemFilter) ([]entity.Item, error) {
	p := itemPredicates(f)
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM pecas`+p.where()+` ORDER BY year DESC, month DESC, created_at DESC`, p.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *ItemRepository) SumAmount(ctx context.Context, userID string, kind entity.Kind, status entity.Status) (decimal.NullDecimal, error) {
	var sum decimal.NullDecimal
	err := r.pool.QueryRow(ctx, `
		SELECT SUM(amount)
		FROM pecas
		WHERE user_id = $1 AND kind = $2 AND status = $3
	`, userID, string(kind), string(status)).Scan(&sum)
	return sum, err
}

func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.ItemRepository = (*ItemRepository)(nil)
