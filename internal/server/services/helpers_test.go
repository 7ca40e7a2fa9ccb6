package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/hasher"
	"github.com/dmitrijs2005/gophauth/internal/server/lockout"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "Valid123!"
	newPassword  = "Fresh456$"
)

var errBoom = errors.New("boom")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) last(t *testing.T, kind notify.Kind) notify.Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.msgs) - 1; i >= 0; i-- {
		if n.msgs[i].Kind == kind {
			return n.msgs[i]
		}
	}
	t.Fatalf("no %s message delivered", kind)
	return notify.Message{}
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

type fakeRevoker struct {
	revoked map[string]time.Time
	err     error
}

func (r *fakeRevoker) Revoke(ctx context.Context, id string, exp time.Time) error {
	if r.err != nil {
		return r.err
	}
	if r.revoked == nil {
		r.revoked = map[string]time.Time{}
	}
	r.revoked[id] = exp
	return nil
}

func (r *fakeRevoker) IsRevoked(ctx context.Context, id string) (bool, error) {
	_, ok := r.revoked[id]
	return ok, nil
}

// fakeRepoManager hands out one fixed repository regardless of the handle.
type fakeRepoManager struct {
	repo accounts.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository      { return m.repo }

// hookRepo wraps a repository and lets tests intercept calls.
type hookRepo struct {
	accounts.Repository
	beforeUpdate func(a *models.Account) error
	getErr       error
	updates      atomic.Int32
}

func (r *hookRepo) Update(ctx context.Context, a *models.Account) error {
	r.updates.Add(1)
	if r.beforeUpdate != nil {
		if err := r.beforeUpdate(a); err != nil {
			return err
		}
	}
	return r.Repository.Update(ctx, a)
}

func (r *hookRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.Repository.GetByEmail(ctx, email)
}

type testEnv struct {
	svc      *AuthService
	store    *accounts.MemoryRepository
	repo     *hookRepo
	notifier *recordingNotifier
	revoker  *fakeRevoker
	clock    *fakeClock
	codec    *auth.TokenCodec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newFakeClock()
	codec, err := auth.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"), auth.WithClock(clock.Now))
	require.NoError(t, err)
	h, err := hasher.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	store := accounts.NewMemoryRepository()
	repo := &hookRepo{Repository: store}
	notifier := &recordingNotifier{}
	revoker := &fakeRevoker{}

	svc, err := NewAuthService(Deps{
		Repos:    &fakeRepoManager{repo: repo},
		Hasher:   h,
		Tokens:   codec,
		Notifier: notifier,
		Revoker:  revoker,
		Policy:   lockout.DefaultPolicy(),
		TokenTTL: time.Hour,
		Logger:   logging.NewNopLogger(),
		Now:      clock.Now,
	})
	require.NoError(t, err)

	return &testEnv{svc: svc, store: store, repo: repo, notifier: notifier, revoker: revoker, clock: clock, codec: codec}
}

func (e *testEnv) register(t *testing.T, email, password string) *models.Account {
	t.Helper()
	_, err := e.svc.Register(context.Background(), email, password)
	require.NoError(t, err)
	a, err := e.store.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return a
}

func (e *testEnv) account(t *testing.T, email string) *models.Account {
	t.Helper()
	a, err := e.store.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return a
}
