package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestManagers_ImplementInterface(t *testing.T) {
	var _ RepositoryManager = NewPostgresRepositoryManager()
	var _ RepositoryManager = NewMemoryRepositoryManager()
}

func TestPostgresManager_Accounts(t *testing.T) {
	db, _ := newDB(t)

	repo := NewPostgresRepositoryManager().Accounts(db)
	require.NotNil(t, repo)
	_, ok := repo.(*accounts.PostgresRepository)
	assert.True(t, ok)
}

func TestMemoryManager_SharesStore(t *testing.T) {
	m := NewMemoryRepositoryManager()
	assert.Same(t, m.Accounts(nil), m.Accounts(nil))
	assert.NoError(t, m.RunMigrations(context.Background(), nil))
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}

	assert.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
	assert.EqualError(t, err, "boom")
}

func TestOpenPostgres(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })

	t.Run("ping ok", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectPing()
		sqlOpen = func(driver, dsn string) (*sql.DB, error) {
			assert.Equal(t, "pgx", driver)
			return db, nil
		}

		got, err := OpenPostgres(context.Background(), "postgres://x")
		require.NoError(t, err)
		assert.Same(t, db, got)
	})

	t.Run("ping fails", func(t *testing.T) {
		db, mock := newDB(t)
		mock.ExpectPing().WillReturnError(errors.New("refused"))
		sqlOpen = func(string, string) (*sql.DB, error) { return db, nil }

		_, err := OpenPostgres(context.Background(), "postgres://x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db ping error")
	})

	t.Run("open fails", func(t *testing.T) {
		sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("bad dsn") }

		_, err := OpenPostgres(context.Background(), "::")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db open error")
	})
}
