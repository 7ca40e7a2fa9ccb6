package accounts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newAccount(id, email string) *models.Account {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Account{
		ID:           id,
		Email:        email,
		PasswordHash: "hash",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMemory_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a := newAccount("a1", "user@example.com")
	a.VerificationToken = strPtr("vt")
	require.NoError(t, repo.Create(ctx, a))
	assert.Equal(t, int64(1), a.Version)

	got, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	got, err = repo.GetByEmail(ctx, "USER@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	got, err = repo.GetByVerificationToken(ctx, "vt")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	_, err = repo.GetByResetToken(ctx, "vt")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemory_CreateDuplicateEmail(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAccount("a1", "user@example.com")))
	err := repo.Create(ctx, newAccount("a2", "User@Example.com"))
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestMemory_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, repo.Update(ctx, newAccount("missing", "x@example.com")), common.ErrorNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newAccount("a1", "user@example.com")))

	got, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	got.FailedLoginAttempts = 99

	again, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.FailedLoginAttempts)
}

func TestMemory_UpdateVersioning(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newAccount("a1", "user@example.com")))

	first, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)

	first.FailedLoginAttempts = 1
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.FailedLoginAttempts = 7
	assert.ErrorIs(t, repo.Update(ctx, second), common.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FailedLoginAttempts)
	assert.Equal(t, int64(2), stored.Version)
}

func TestMemory_UpdateKeepsEmail(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newAccount("a1", "user@example.com")))

	a, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	a.Email = "other@example.com"
	require.NoError(t, repo.Update(ctx, a))

	stored, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", stored.Email)
}

func TestMemory_ConcurrentUpdatesOneWins(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newAccount("a1", "user@example.com")))

	const n = 16
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	snapshots := make([]*models.Account, n)
	for i := range snapshots {
		a, err := repo.GetByID(ctx, "a1")
		require.NoError(t, err)
		snapshots[i] = a
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(a *models.Account) {
			defer wg.Done()
			<-start
			a.FailedLoginAttempts++
			switch err := repo.Update(ctx, a); err {
			case nil:
				wins.Add(1)
			case common.ErrVersionConflict:
				conflicts.Add(1)
			}
		}(snapshots[i])
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
}
