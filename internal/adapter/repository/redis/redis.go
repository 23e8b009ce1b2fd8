// Package redis provides a Redis-backed Record Store for shortened URLs.
//
// Keys (all under a configurable prefix):
//
//	<prefix>url:<id>     hash with the URL fields
//	<prefix>code:<code>  string holding the id that owns the code
//	<prefix>urls         list of ids in insertion order
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/short-links/internal/entity"
)

const maxTxRetries = 100

const (
	fieldID              = "id"
	fieldShortCode       = "short_code"
	fieldOriginalURL     = "original_url"
	fieldValidityMinutes = "validity_minutes"
	fieldClickCount      = "click_count"
	fieldCreatedAt       = "created_at"
	fieldExpiresAt       = "expires_at"
)

// KEYS: code key, url key, list key. ARGV: id followed by hash field/value pairs.
var insertScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[2], unpack(ARGV, 2))
redis.call('RPUSH', KEYS[3], ARGV[1])
return 1
`)

// KEYS: url key, list key. ARGV: id, code key prefix.
var removeScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'short_code')
if not code then
	return 0
end
redis.call('DEL', KEYS[1], ARGV[2] .. code)
redis.call('LREM', KEYS[2], 0, ARGV[1])
return 1
`)

func storageErr(op, msg string, err error) error {
	return fmt.Errorf("%s: %s: %w", op, msg, errors.Join(entity.ErrStorageUnavailable, err))
}

// URLRepository stores URLs in Redis.
type URLRepository struct {
	client redis.UniversalClient
	prefix string
}

func NewURLRepository(client redis.UniversalClient, prefix string) *URLRepository {
	return &URLRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *URLRepository) urlKey(id string) string { return r.prefix + "url:" + id }

func (r *URLRepository) codeKey(code string) string { return r.codeKeyPrefix() + code }

func (r *URLRepository) codeKeyPrefix() string { return r.prefix + "code:" }

func (r *URLRepository) listKey() string { return r.prefix + "urls" }

func (r *URLRepository) Insert(ctx context.Context, url *entity.URL) error {
	const op = "adapter.repository.redis.URLRepository.Insert"

	keys := []string{r.codeKey(url.ShortCode), r.urlKey(url.ID), r.listKey()}
	args := append([]any{url.ID}, toHash(url)...)

	inserted, err := insertScript.Run(ctx, r.client, keys, args...).Int()
	if err != nil {
		return storageErr(op, "failed to run insert script", err)
	}

	if inserted == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	return nil
}

func (r *URLRepository) FindByCode(ctx context.Context, code string) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.FindByCode"

	id, err := r.client.Get(ctx, r.codeKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, storageErr(op, "failed to get code key", err)
	}

	url, err := r.get(ctx, r.client, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) ListAll(ctx context.Context) ([]*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.ListAll"

	ids, err := r.client.LRange(ctx, r.listKey(), 0, -1).Result()
	if err != nil {
		return nil, storageErr(op, "failed to read url list", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))

	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.urlKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(op, "failed to read url hashes", err)
	}

	urls := make([]*entity.URL, 0, len(ids))
	for _, cmd := range cmds {
		// A url removed between LRANGE and HGETALL comes back empty.
		if len(cmd.Val()) == 0 {
			continue
		}

		url, err := fromHash(cmd.Val())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		urls = append(urls, url)
	}

	return urls, nil
}

// Update runs mutate inside a WATCH/MULTI transaction on the url hash and
// retries when another client changed the hash in between. Only ClickCount
// is written back.
func (r *URLRepository) Update(ctx context.Context, id string, mutate func(*entity.URL) error) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.Update"

	key := r.urlKey(id)

	var (
		updated   *entity.URL
		mutateErr error
	)

	txf := func(tx *redis.Tx) error {
		current, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}

		mutated := current.Clone()
		if err := mutate(mutated); err != nil {
			mutateErr = err
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldClickCount, mutated.ClickCount)
			return nil
		})
		if err != nil {
			return err
		}

		current.ClickCount = mutated.ClickCount
		updated = current

		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		mutateErr = nil

		err := r.client.Watch(ctx, txf, key)

		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case mutateErr != nil:
			return nil, fmt.Errorf("%s: %w", op, mutateErr)
		case errors.Is(err, entity.ErrURLNotFound), errors.Is(err, entity.ErrStorageUnavailable):
			return nil, fmt.Errorf("%s: %w", op, err)
		default:
			return nil, storageErr(op, "failed to run transaction", err)
		}
	}

	return nil, storageErr(op, "transaction kept conflicting", redis.TxFailedErr)
}

func (r *URLRepository) Remove(ctx context.Context, id string) error {
	const op = "adapter.repository.redis.URLRepository.Remove"

	keys := []string{r.urlKey(id), r.listKey()}

	if err := removeScript.Run(ctx, r.client, keys, id, r.codeKeyPrefix()).Err(); err != nil {
		return storageErr(op, "failed to run remove script", err)
	}

	return nil
}

func (r *URLRepository) get(ctx context.Context, c redis.Cmdable, id string) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.get"

	fields, err := c.HGetAll(ctx, r.urlKey(id)).Result()
	if err != nil {
		return nil, storageErr(op, "failed to read url hash", err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return fromHash(fields)
}

func toHash(url *entity.URL) []any {
	return []any{
		fieldID, url.ID,
		fieldShortCode, url.ShortCode,
		fieldOriginalURL, url.OriginalURL,
		fieldValidityMinutes, url.ValidityMinutes,
		fieldClickCount, url.ClickCount,
		fieldCreatedAt, url.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldExpiresAt, url.ExpiresAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromHash(fields map[string]string) (*entity.URL, error) {
	const op = "adapter.repository.redis.fromHash"

	validity, err := strconv.Atoi(fields[fieldValidityMinutes])
	if err != nil {
		return nil, storageErr(op, "invalid validity_minutes", err)
	}

	clicks, err := strconv.ParseInt(fields[fieldClickCount], 10, 64)
	if err != nil {
		return nil, storageErr(op, "invalid click_count", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, storageErr(op, "invalid created_at", err)
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, fields[fieldExpiresAt])
	if err != nil {
		return nil, storageErr(op, "invalid expires_at", err)
	}

	return &entity.URL{
		ID:              fields[fieldID],
		OriginalURL:     fields[fieldOriginalURL],
		ShortCode:       fields[fieldShortCode],
		ValidityMinutes: validity,
		CreatedAt:       createdAt,
		ExpiresAt:       expiresAt,
		ClickCount:      clicks,
	}, nil
}
