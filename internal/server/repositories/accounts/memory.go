package accounts

import (
	"context"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// MemoryRepository keeps accounts in process memory. Stored values are
// copied on the way in and out, so callers never share state with the map.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.Account
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*models.Account),
		byEmail: make(map[string]string),
	}
}

func emailKey(email string) string { return strings.ToLower(email) }

func (r *MemoryRepository) Create(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[emailKey(a.Email)]; ok {
		return common.ErrAlreadyExists
	}
	if _, ok := r.byID[a.ID]; ok {
		return common.ErrAlreadyExists
	}

	a.Version = 1
	r.byID[a.ID] = a.Clone()
	r.byEmail[emailKey(a.Email)] = a.ID
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a.Clone(), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *MemoryRepository) GetByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool {
		return a.VerificationToken != nil && *a.VerificationToken == token
	})
}

func (r *MemoryRepository) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool {
		return a.ResetToken != nil && *a.ResetToken == token
	})
}

func (r *MemoryRepository) Update(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[a.ID]
	if !ok {
		return common.ErrorNotFound
	}
	if stored.Version != a.Version {
		return common.ErrVersionConflict
	}

	next := a.Clone()
	// email is immutable once created
	next.Email = stored.Email
	next.CreatedAt = stored.CreatedAt
	next.Version = stored.Version + 1

	r.byID[a.ID] = next
	a.Version = next.Version
	return nil
}

func (r *MemoryRepository) find(match func(*models.Account) bool) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.byID {
		if match(a) {
			return a.Clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}
