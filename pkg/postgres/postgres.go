// Package postgres opens pooled sqlx connections to PostgreSQL and applies schema migrations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const driverName = "pgx"

const (
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultConnMaxLifetime = 30 * time.Minute
	defaultMaxIdleConns    = 5
	defaultMaxOpenConns    = 25
	defaultConnectAttempts = 3
	defaultRetryDelay      = time.Second
)

type options struct {
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
	maxIdleConns    int
	maxOpenConns    int
	connectAttempts int
	retryDelay      time.Duration
}

func defaultOptions() options {
	return options{
		connMaxIdleTime: defaultConnMaxIdleTime,
		connMaxLifetime: defaultConnMaxLifetime,
		maxIdleConns:    defaultMaxIdleConns,
		maxOpenConns:    defaultMaxOpenConns,
		connectAttempts: defaultConnectAttempts,
		retryDelay:      defaultRetryDelay,
	}
}

type Option func(*options)

func WithConnMaxIdleTime(d time.Duration) Option {
	return func(o *options) {
		o.connMaxIdleTime = d
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *options) {
		o.connMaxLifetime = d
	}
}

func WithMaxIdleConns(n int) Option {
	return func(o *options) {
		o.maxIdleConns = n
	}
}

func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		o.maxOpenConns = n
	}
}

// WithConnectRetry makes New try to reach the database attempts times, waiting delay between tries.
func WithConnectRetry(attempts int, delay time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.connectAttempts = attempts
		}
		o.retryDelay = delay
	}
}

// New connects to the database at dsn and configures its pool.
func New(ctx context.Context, dsn string, opts ...Option) (*sqlx.DB, error) {
	const op = "postgres.New"

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var (
		db  *sqlx.DB
		err error
	)

	for attempt := 1; attempt <= o.connectAttempts; attempt++ {
		db, err = sqlx.ConnectContext(ctx, driverName, dsn)
		if err == nil {
			break
		}

		if attempt == o.connectAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(o.retryDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	configure(db, o)

	return db, nil
}

// Configure applies pool options to an already opened database.
func Configure(db *sqlx.DB, opts ...Option) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	configure(db, o)
}

func configure(db *sqlx.DB, o options) {
	db.SetConnMaxIdleTime(o.connMaxIdleTime)
	db.SetConnMaxLifetime(o.connMaxLifetime)
	db.SetMaxIdleConns(o.maxIdleConns)
	db.SetMaxOpenConns(o.maxOpenConns)
}
