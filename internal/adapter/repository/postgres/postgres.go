// Package postgres provides a PostgreSQL-backed Record Store for shortened URLs.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/short-links/internal/entity"
)

const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}

const urlColumns = `id, short_code, original_url, validity_minutes, click_count, created_at, expires_at`

type urlDB struct {
	ID              string    `db:"id"`
	ShortCode       string    `db:"short_code"`
	OriginalURL     string    `db:"original_url"`
	ValidityMinutes int       `db:"validity_minutes"`
	ClickCount      int64     `db:"click_count"`
	CreatedAt       time.Time `db:"created_at"`
	ExpiresAt       time.Time `db:"expires_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ID:              u.ID,
		OriginalURL:     u.OriginalURL,
		ShortCode:       u.ShortCode,
		ValidityMinutes: u.ValidityMinutes,
		CreatedAt:       u.CreatedAt,
		ExpiresAt:       u.ExpiresAt,
		ClickCount:      u.ClickCount,
	}
}

// storageErr marks err as a storage failure while keeping the cause matchable.
func storageErr(op, msg string, err error) error {
	return fmt.Errorf("%s: %s: %w", op, msg, errors.Join(entity.ErrStorageUnavailable, err))
}

// URLRepository stores URLs in the urls table.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) Insert(ctx context.Context, url *entity.URL) error {
	const op = "adapter.repository.postgres.URLRepository.Insert"
	const query = `INSERT INTO urls(id, short_code, original_url, validity_minutes, click_count, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		url.ID, url.ShortCode, url.OriginalURL, url.ValidityMinutes, url.ClickCount, url.CreatedAt, url.ExpiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return storageErr(op, "failed to insert into urls table", err)
	}

	return nil
}

func (r *URLRepository) FindByCode(ctx context.Context, code string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.FindByCode"
	const query = `SELECT ` + urlColumns + ` FROM urls WHERE short_code = $1`

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, storageErr(op, "failed to get row from urls table", err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) ListAll(ctx context.Context) ([]*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.ListAll"
	const query = `SELECT ` + urlColumns + ` FROM urls ORDER BY seq`

	var rows []urlDB

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, storageErr(op, "failed to select rows from urls table", err)
	}

	urls := make([]*entity.URL, 0, len(rows))
	for i := range rows {
		urls = append(urls, rows[i].toEntity())
	}

	return urls, nil
}

// Update locks the row with SELECT ... FOR UPDATE, applies mutate and writes
// back the click count in the same transaction.
func (r *URLRepository) Update(ctx context.Context, id string, mutate func(*entity.URL) error) (_ *entity.URL, err error) {
	const op = "adapter.repository.postgres.URLRepository.Update"
	const selectQuery = `SELECT ` + urlColumns + ` FROM urls WHERE id = $1 FOR UPDATE`
	const updateQuery = `UPDATE urls SET click_count = $1 WHERE id = $2`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr(op, "failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row urlDB

	if err := tx.GetContext(ctx, &row, selectQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, storageErr(op, "failed to lock row in urls table", err)
	}

	url := row.toEntity()
	if err := mutate(url); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, updateQuery, url.ClickCount, id); err != nil {
		return nil, storageErr(op, "failed to update urls table row", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr(op, "failed to commit transaction", err)
	}

	row.ClickCount = url.ClickCount

	return row.toEntity(), nil
}

func (r *URLRepository) Remove(ctx context.Context, id string) error {
	const op = "adapter.repository.postgres.URLRepository.Remove"
	const query = `DELETE FROM urls WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return storageErr(op, "failed to delete from urls table", err)
	}

	return nil
}
