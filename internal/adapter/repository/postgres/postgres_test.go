package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/short-links/internal/entity"
)

func TestIsUniqueViolationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unique violation error",
			err:  &pgconn.PgError{Code: uniqueViolationErrCode},
			want: true,
		},
		{
			name: "wrapped unique violation error",
			err:  errors.Join(errors.New("context"), &pgconn.PgError{Code: uniqueViolationErrCode}),
			want: true,
		},
		{
			name: "not unique violation error",
			err:  &pgconn.PgError{Code: "unknown error code"},
			want: false,
		},
		{
			name: "not PgError",
			err:  errors.New("unknown error"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolationError(tt.err))
		})
	}
}

type URLRepositoryTestSuite struct {
	suite.Suite
	errUnknown error
	columns    []string
	createdAt  time.Time
	mock       sqlmock.Sqlmock
	repo       *URLRepository
}

func (suite *URLRepositoryTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.columns = []string{"id", "short_code", "original_url", "validity_minutes", "click_count", "created_at", "expires_at"}
	suite.createdAt = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
}

func (suite *URLRepositoryTestSuite) SetupSubTest() {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		suite.T().Fatalf("Failed to create mock database: %v", err)
	}
	suite.T().Cleanup(func() {
		mockDB.Close()
	})

	db := sqlx.NewDb(mockDB, "sqlmock")

	suite.mock = mock
	suite.repo = NewURLRepository(db)
}

func (suite *URLRepositoryTestSuite) TearDownSubTest() {
	suite.NoError(suite.mock.ExpectationsWereMet())
}

func (suite *URLRepositoryTestSuite) newURL() *entity.URL {
	return &entity.URL{
		ID:              "3f1c1f4e-8a43-4a47-9a1d-3c5f0b8e6d11",
		OriginalURL:     "https://example.com",
		ShortCode:       "abc123",
		ValidityMinutes: 30,
		CreatedAt:       suite.createdAt,
		ExpiresAt:       entity.ExpiresAfter(suite.createdAt, 30),
	}
}

func (suite *URLRepositoryTestSuite) newRows(clickCount int64) *sqlmock.Rows {
	url := suite.newURL()

	return sqlmock.NewRows(suite.columns).
		AddRow(url.ID, url.ShortCode, url.OriginalURL, url.ValidityMinutes, clickCount, url.CreatedAt, url.ExpiresAt)
}

func (suite *URLRepositoryTestSuite) TestInsert() {
	suite.Run("short code exists", func() {
		url := suite.newURL()

		suite.mock.ExpectExec(`INSERT INTO urls`).
			WithArgs(url.ID, url.ShortCode, url.OriginalURL, url.ValidityMinutes, url.ClickCount, url.CreatedAt, url.ExpiresAt).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		err := suite.repo.Insert(context.Background(), url)

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrShortCodeExists)
		suite.NotErrorIs(err, entity.ErrStorageUnavailable)
	})

	suite.Run("unknown error", func() {
		url := suite.newURL()

		suite.mock.ExpectExec(`INSERT INTO urls`).
			WithArgs(url.ID, url.ShortCode, url.OriginalURL, url.ValidityMinutes, url.ClickCount, url.CreatedAt, url.ExpiresAt).
			WillReturnError(suite.errUnknown)

		err := suite.repo.Insert(context.Background(), url)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.ErrorIs(err, entity.ErrStorageUnavailable)
	})

	suite.Run("success", func() {
		url := suite.newURL()

		suite.mock.ExpectExec(`INSERT INTO urls`).
			WithArgs(url.ID, url.ShortCode, url.OriginalURL, url.ValidityMinutes, url.ClickCount, url.CreatedAt, url.ExpiresAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := suite.repo.Insert(context.Background(), url)

		suite.NoError(err)
	})
}

func (suite *URLRepositoryTestSuite) TestFindByCode() {
	suite.Run("url not found", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE short_code = \$1`).
			WithArgs("abc123").
			WillReturnError(sql.ErrNoRows)

		url, err := suite.repo.FindByCode(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE short_code = \$1`).
			WithArgs("abc123").
			WillReturnError(suite.errUnknown)

		url, err := suite.repo.FindByCode(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.ErrorIs(err, entity.ErrStorageUnavailable)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE short_code = \$1`).
			WithArgs("abc123").
			WillReturnRows(suite.newRows(3))

		url, err := suite.repo.FindByCode(context.Background(), "abc123")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("abc123", url.ShortCode)
		suite.Equal("https://example.com", url.OriginalURL)
		suite.Equal(30, url.ValidityMinutes)
		suite.Equal(int64(3), url.ClickCount)
		suite.Equal(suite.createdAt.Add(30*time.Minute), url.ExpiresAt)
	})
}

func (suite *URLRepositoryTestSuite) TestListAll() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls ORDER BY seq`).
			WillReturnError(suite.errUnknown)

		urls, err := suite.repo.ListAll(context.Background())

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrStorageUnavailable)
		suite.Nil(urls)
	})

	suite.Run("empty", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls ORDER BY seq`).
			WillReturnRows(sqlmock.NewRows(suite.columns))

		urls, err := suite.repo.ListAll(context.Background())

		suite.NoError(err)
		suite.Empty(urls)
	})

	suite.Run("success", func() {
		rows := sqlmock.NewRows(suite.columns).
			AddRow("id-1", "aaa", "https://a.example.com", 10, 1, suite.createdAt, suite.createdAt.Add(10*time.Minute)).
			AddRow("id-2", "bbb", "https://b.example.com", 20, 2, suite.createdAt, suite.createdAt.Add(20*time.Minute))

		suite.mock.ExpectQuery(`SELECT (.+) FROM urls ORDER BY seq`).
			WillReturnRows(rows)

		urls, err := suite.repo.ListAll(context.Background())

		suite.NoError(err)
		suite.Len(urls, 2)
		suite.Equal("aaa", urls[0].ShortCode)
		suite.Equal("bbb", urls[1].ShortCode)
		suite.Equal(int64(2), urls[1].ClickCount)
	})
}

func (suite *URLRepositoryTestSuite) TestUpdate() {
	const id = "3f1c1f4e-8a43-4a47-9a1d-3c5f0b8e6d11"

	increment := func(u *entity.URL) error {
		u.ClickCount++
		return nil
	}

	suite.Run("begin error", func() {
		suite.mock.ExpectBegin().WillReturnError(suite.errUnknown)

		url, err := suite.repo.Update(context.Background(), id, increment)

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrStorageUnavailable)
		suite.Nil(url)
	})

	suite.Run("url not found", func() {
		suite.mock.ExpectBegin()
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE id = \$1 FOR UPDATE`).
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)
		suite.mock.ExpectRollback()

		url, err := suite.repo.Update(context.Background(), id, increment)

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("mutator error", func() {
		suite.mock.ExpectBegin()
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE id = \$1 FOR UPDATE`).
			WithArgs(id).
			WillReturnRows(suite.newRows(0))
		suite.mock.ExpectRollback()

		url, err := suite.repo.Update(context.Background(), id, func(*entity.URL) error {
			return entity.ErrURLExpired
		})

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLExpired)
		suite.Nil(url)
	})

	suite.Run("update error", func() {
		suite.mock.ExpectBegin()
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE id = \$1 FOR UPDATE`).
			WithArgs(id).
			WillReturnRows(suite.newRows(0))
		suite.mock.ExpectExec(`UPDATE urls SET click_count = \$1 WHERE id = \$2`).
			WithArgs(int64(1), id).
			WillReturnError(suite.errUnknown)
		suite.mock.ExpectRollback()

		url, err := suite.repo.Update(context.Background(), id, increment)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.ErrorIs(err, entity.ErrStorageUnavailable)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.mock.ExpectBegin()
		suite.mock.ExpectQuery(`SELECT (.+) FROM urls WHERE id = \$1 FOR UPDATE`).
			WithArgs(id).
			WillReturnRows(suite.newRows(4))
		suite.mock.ExpectExec(`UPDATE urls SET click_count = \$1 WHERE id = \$2`).
			WithArgs(int64(5), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		suite.mock.ExpectCommit()

		url, err := suite.repo.Update(context.Background(), id, func(u *entity.URL) error {
			u.ClickCount++
			u.OriginalURL = "https://changed.example.com"
			return nil
		})

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal(int64(5), url.ClickCount)
		suite.Equal("https://example.com", url.OriginalURL)
	})
}

func (suite *URLRepositoryTestSuite) TestRemove() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("id-1").
			WillReturnError(suite.errUnknown)

		err := suite.repo.Remove(context.Background(), "id-1")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.ErrorIs(err, entity.ErrStorageUnavailable)
	})

	suite.Run("missing row", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("id-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := suite.repo.Remove(context.Background(), "id-1")

		suite.NoError(err)
	})

	suite.Run("success", func() {
		suite.mock.ExpectExec(`DELETE FROM urls`).
			WithArgs("id-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := suite.repo.Remove(context.Background(), "id-1")

		suite.NoError(err)
	})
}

func TestURLRepository(t *testing.T) {
	suite.Run(t, new(URLRepositoryTestSuite))
}
