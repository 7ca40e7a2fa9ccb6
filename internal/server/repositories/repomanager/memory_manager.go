package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
)

// MemoryRepositoryManager serves a single process-wide in-memory account
// store. The db handle is ignored and migrations are a no-op.
type MemoryRepositoryManager struct {
	accounts *accounts.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{accounts: accounts.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Accounts(dbx.DBTX) accounts.Repository {
	return m.accounts
}
