// Package memory provides an in-process Record Store for shortened URLs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vadimbarashkov/short-links/internal/entity"
)

// URLRepository keeps URLs in memory. It is safe for concurrent use and
// never hands out pointers to its own records.
type URLRepository struct {
	mu     sync.RWMutex
	urls   []*entity.URL
	byID   map[string]*entity.URL
	byCode map[string]*entity.URL
}

// NewURLRepository creates an empty repository.
func NewURLRepository() *URLRepository {
	return &URLRepository{
		byID:   make(map[string]*entity.URL),
		byCode: make(map[string]*entity.URL),
	}
}

// Insert stores a copy of url unless its short code is already taken.
func (r *URLRepository) Insert(ctx context.Context, url *entity.URL) error {
	const op = "adapter.repository.memory.URLRepository.Insert"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCode[url.ShortCode]; ok {
		return fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	rec := url.Clone()
	r.urls = append(r.urls, rec)
	r.byID[rec.ID] = rec
	r.byCode[rec.ShortCode] = rec

	return nil
}

// FindByCode returns a copy of the URL with the given short code.
func (r *URLRepository) FindByCode(ctx context.Context, code string) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.FindByCode"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byCode[code]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return rec.Clone(), nil
}

// ListAll returns copies of all URLs in insertion order.
func (r *URLRepository) ListAll(ctx context.Context) ([]*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.ListAll"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	urls := make([]*entity.URL, 0, len(r.urls))
	for _, rec := range r.urls {
		urls = append(urls, rec.Clone())
	}

	return urls, nil
}

// Update applies mutate to a copy of the URL with the given id while holding
// the write lock. If mutate fails nothing is written. Only ClickCount is
// taken from the mutated copy.
func (r *URLRepository) Update(ctx context.Context, id string, mutate func(*entity.URL) error) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.Update"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	updated := rec.Clone()
	if err := mutate(updated); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec.ClickCount = updated.ClickCount

	return rec.Clone(), nil
}

// Remove deletes the URL with the given id. Removing a missing id is a no-op.
func (r *URLRepository) Remove(ctx context.Context, id string) error {
	const op = "adapter.repository.memory.URLRepository.Remove"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil
	}

	delete(r.byID, id)
	delete(r.byCode, rec.ShortCode)

	for i, u := range r.urls {
		if u == rec {
			r.urls = append(r.urls[:i], r.urls[i+1:]...)
			break
		}
	}

	return nil
}
