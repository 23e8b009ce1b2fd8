// Package usecase implements the lifecycle of shortened URLs: creation with
// validation, quota and uniqueness checks, resolution with expiry checks and
// click accounting, deletion and read-only statistics.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vadimbarashkov/short-links/internal/entity"
	"github.com/vadimbarashkov/short-links/internal/stats"
	"github.com/vadimbarashkov/short-links/internal/validation"
)

const (
	DefaultMaxActive  = 5
	DefaultMaxRetries = 100
)

type urlRepository interface {
	Insert(ctx context.Context, url *entity.URL) error
	FindByCode(ctx context.Context, code string) (*entity.URL, error)
	ListAll(ctx context.Context) ([]*entity.URL, error)
	Update(ctx context.Context, id string, mutate func(*entity.URL) error) (*entity.URL, error)
	Remove(ctx context.Context, id string) error
}

type shortCodeGenerator interface {
	Generate() (string, error)
}

// ShortenInput holds the parameters of a shorten request.
// An empty ShortCode asks for a generated one.
type ShortenInput struct {
	OriginalURL     string
	ShortCode       string
	ValidityMinutes int
}

type Option func(*URLUseCase)

// WithClock sets the clock used for timestamps and expiry checks.
func WithClock(clock entity.Clock) Option {
	return func(uc *URLUseCase) {
		uc.clock = clock
	}
}

// WithMaxActive sets how many active URLs may exist at once.
func WithMaxActive(n int) Option {
	return func(uc *URLUseCase) {
		uc.maxActive = n
	}
}

// WithMaxRetries caps the attempts at finding a free generated code.
func WithMaxRetries(n int) Option {
	return func(uc *URLUseCase) {
		uc.maxRetries = n
	}
}

// WithBaseURL sets the origin short URLs are built on.
func WithBaseURL(baseURL string) Option {
	return func(uc *URLUseCase) {
		uc.baseURL = strings.TrimRight(baseURL, "/")
	}
}

type URLUseCase struct {
	urlRepo    urlRepository
	generator  shortCodeGenerator
	validator  *validation.Validator
	clock      entity.Clock
	maxActive  int
	maxRetries int
	baseURL    string

	// createMu serialises the quota check, the code claim and the insert.
	createMu sync.Mutex
}

func New(urlRepo urlRepository, generator shortCodeGenerator, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:    urlRepo,
		generator:  generator,
		validator:  validation.New(),
		clock:      entity.RealClock{},
		maxActive:  DefaultMaxActive,
		maxRetries: DefaultMaxRetries,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ShortenURL validates in and stores a new URL under a custom or generated short code.
func (uc *URLUseCase) ShortenURL(ctx context.Context, in ShortenInput) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	originalURL := strings.TrimSpace(in.OriginalURL)
	customCode := in.ShortCode

	if !uc.validator.ValidURL(originalURL) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
	}

	if in.ValidityMinutes < entity.MinValidityMinutes || in.ValidityMinutes > entity.MaxValidityMinutes {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidValidityPeriod)
	}

	if !uc.validator.ValidShortCode(customCode) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidShortCode)
	}

	uc.createMu.Lock()
	defer uc.createMu.Unlock()

	if err := uc.checkQuota(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	newURL := func(code string) *entity.URL {
		createdAt := uc.clock.Now()

		return &entity.URL{
			ID:              uuid.NewString(),
			OriginalURL:     originalURL,
			ShortCode:       code,
			ValidityMinutes: in.ValidityMinutes,
			CreatedAt:       createdAt,
			ExpiresAt:       entity.ExpiresAfter(createdAt, in.ValidityMinutes),
		}
	}

	if customCode != "" {
		url := newURL(customCode)

		if err := uc.urlRepo.Insert(ctx, url); err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				return nil, fmt.Errorf("%s: %w", op, entity.ErrCodeInUse)
			}

			return nil, fmt.Errorf("%s: failed to save url: %w", op, err)
		}

		return url, nil
	}

	for i := 0; i < uc.maxRetries; i++ {
		code, err := uc.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		unique, err := uc.isShortCodeUnique(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !unique {
			continue
		}

		url := newURL(code)

		if err := uc.urlRepo.Insert(ctx, url); err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to save url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, entity.ErrCodeSpaceExhausted)
}

// ResolveShortCode returns the URL for code after counting the click.
// The expiry check and the increment happen atomically in the store.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, code string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	url, err := uc.urlRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to find url: %w", op, err)
	}

	url, err = uc.urlRepo.Update(ctx, url.ID, func(u *entity.URL) error {
		if u.IsExpired(uc.clock.Now()) {
			return entity.ErrURLExpired
		}

		u.ClickCount++

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to count click: %w", op, err)
	}

	return url, nil
}

// DeleteURL removes the URL with the given id. Deleting a missing URL succeeds.
func (uc *URLUseCase) DeleteURL(ctx context.Context, id string) error {
	const op = "usecase.URLUseCase.DeleteURL"

	if err := uc.urlRepo.Remove(ctx, id); err != nil {
		return fmt.Errorf("%s: failed to delete url: %w", op, err)
	}

	return nil
}

// ListURLs returns all URLs with their derived metrics, newest first.
func (uc *URLUseCase) ListURLs(ctx context.Context) ([]stats.URLStats, error) {
	const op = "usecase.URLUseCase.ListURLs"

	urls, err := uc.urlRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	now := uc.clock.Now()

	list := make([]stats.URLStats, 0, len(urls))
	for i := len(urls) - 1; i >= 0; i-- {
		list = append(list, stats.Project(urls[i], now))
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].URL.CreatedAt.After(list[j].URL.CreatedAt)
	})

	return list, nil
}

// GetStats returns the summary and per-URL metrics of all URLs.
func (uc *URLUseCase) GetStats(ctx context.Context) (*stats.Report, error) {
	const op = "usecase.URLUseCase.GetStats"

	urls, err := uc.urlRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	report := stats.Build(urls, uc.clock.Now())

	return &report, nil
}

// PurgeExpired removes URLs that expired more than retention ago and returns
// how many were removed. Purged codes become available again.
func (uc *URLUseCase) PurgeExpired(ctx context.Context, retention time.Duration) (int, error) {
	const op = "usecase.URLUseCase.PurgeExpired"

	urls, err := uc.urlRepo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	cutoff := uc.clock.Now().Add(-retention)

	var purged int
	for _, url := range urls {
		if !url.IsExpired(cutoff) {
			continue
		}

		if err := uc.urlRepo.Remove(ctx, url.ID); err != nil {
			return purged, fmt.Errorf("%s: failed to delete url: %w", op, err)
		}
		purged++
	}

	return purged, nil
}

// ShortURL builds the public short URL for code.
func (uc *URLUseCase) ShortURL(code string) string {
	return uc.baseURL + "/" + code
}

func (uc *URLUseCase) checkQuota(ctx context.Context) error {
	urls, err := uc.urlRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list urls: %w", err)
	}

	now := uc.clock.Now()

	var active int
	for _, url := range urls {
		if !url.IsExpired(now) {
			active++
		}
	}

	if active >= uc.maxActive {
		return entity.ErrQuotaExceeded
	}

	return nil
}

// isShortCodeUnique reports whether no URL, expired or not, holds code.
func (uc *URLUseCase) isShortCodeUnique(ctx context.Context, code string) (bool, error) {
	_, err := uc.urlRepo.FindByCode(ctx, code)
	if err == nil {
		return false, nil
	}

	if errors.Is(err, entity.ErrURLNotFound) {
		return true, nil
	}

	return false, fmt.Errorf("failed to check short code: %w", err)
}
