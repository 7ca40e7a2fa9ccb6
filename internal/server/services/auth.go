// Package services contains server-side business logic. This file implements
// AuthService, the authentication and account-security engine: registration,
// login with brute-force lockout, token refresh, the password lifecycle and
// email verification.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/lockout"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/revocation"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	MsgRegistered      = "User registered successfully. Please check your email for verification."
	MsgResetRequested  = "If the email exists, a password reset link has been sent."
	MsgPasswordReset   = "Password reset successfully."
	MsgPasswordChanged = "Password changed successfully."
	MsgEmailVerified   = "Email verified successfully."
	MsgLoggedOut       = "Logged out successfully"
)

const (
	DefaultResetTokenTTL = time.Hour

	// one-time tokens carry this many random bytes, hex encoded
	oneTimeTokenBytes = 32
)

var tracer = otel.Tracer("github.com/dmitrijs2005/gophauth/internal/server/services")

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	Issue(subject, email string, issuedAt time.Time, ttl time.Duration) (*auth.IssuedToken, error)
}

// Message is the body of operations that only report success.
type Message struct {
	Message string `json:"message"`
}

// AuthResult is returned by Login and RefreshToken.
type AuthResult struct {
	AccessToken string             `json:"access_token"`
	TokenType   string             `json:"token_type"`
	ExpiresIn   int64              `json:"expires_in"`
	ExpiresAt   time.Time          `json:"expires_at"`
	User        *models.PublicUser `json:"user"`
}

// Deps is everything AuthService needs. Revoker, NotifyTimeout and Now are
// optional.
type Deps struct {
	DB            *sql.DB
	Repos         repomanager.RepositoryManager
	Hasher        PasswordHasher
	Tokens        TokenIssuer
	Notifier      notify.Notifier
	Revoker       revocation.Revoker
	Policy        lockout.Policy
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	NotifyTimeout time.Duration
	Logger        logging.Logger
	Now           func() time.Time
}

type AuthService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	hasher        PasswordHasher
	tokens        TokenIssuer
	notifier      notify.Notifier
	revoker       revocation.Revoker
	policy        lockout.Policy
	tokenTTL      time.Duration
	resetTokenTTL time.Duration
	notifyTimeout time.Duration
	logger        logging.Logger
	now           func() time.Time

	// dummyHash is compared against when the email is unknown so the
	// response time does not reveal whether the account exists.
	dummyHash string
}

func NewAuthService(d Deps) (*AuthService, error) {
	if d.Repos == nil || d.Hasher == nil || d.Tokens == nil || d.Notifier == nil {
		return nil, errors.New("auth service: repos, hasher, tokens and notifier are required")
	}
	if d.TokenTTL <= 0 {
		return nil, errors.New("auth service: token ttl must be positive")
	}
	if d.Policy.Threshold < 1 || d.Policy.Duration <= 0 {
		return nil, errors.New("auth service: invalid lockout policy")
	}

	s := &AuthService{
		db:            d.DB,
		repomanager:   d.Repos,
		hasher:        d.Hasher,
		tokens:        d.Tokens,
		notifier:      d.Notifier,
		revoker:       d.Revoker,
		policy:        d.Policy,
		tokenTTL:      d.TokenTTL,
		resetTokenTTL: d.ResetTokenTTL,
		notifyTimeout: d.NotifyTimeout,
		logger:        d.Logger,
		now:           d.Now,
	}
	if s.resetTokenTTL <= 0 {
		s.resetTokenTTL = DefaultResetTokenTTL
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.logger = s.logger.With("module", "auth_service")
	if s.now == nil {
		s.now = time.Now
	}

	dummy, err := s.hasher.Hash(fmt.Sprintf("%x", common.GenerateRandByteArray(16)))
	if err != nil {
		return nil, fmt.Errorf("auth service: dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Register creates an unverified account and sends its verification token
// through the notifier. The token is never part of the response. Registering
// an unverified address again with its password re-issues the token instead
// of failing with common.ErrAlreadyExists.
func (s *AuthService) Register(ctx context.Context, email, password string) (_ *Message, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer func() { endSpan(span, err) }()

	if err := validation.Email(email); err != nil {
		return nil, err
	}
	if err := validation.Password(password); err != nil {
		return nil, err
	}
	email = validation.NormalizeEmail(email)

	repo := s.accounts()
	if existing, err := repo.GetByEmail(ctx, email); err == nil {
		if !existing.IsVerified && s.hasher.Verify(password, existing.PasswordHash) {
			return s.resendVerification(ctx, email)
		}
		return nil, common.ErrAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "Account lookup failed", "op", "register", "error", err)
		return nil, common.ErrorInternal
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error(ctx, "Password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}
	token, err := common.MakeRandHexString(oneTimeTokenBytes)
	if err != nil {
		s.logger.Error(ctx, "Token generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	now := s.clock()
	account := &models.Account{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      hash,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
		VerificationToken: &token,
	}
	if err := repo.Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		s.logger.Error(ctx, "Account create failed", "error", err)
		return nil, common.ErrorInternal
	}
	span.SetAttributes(attribute.String("account.id", account.ID))

	err = s.deliver(ctx, notify.Message{
		ID:        uuid.NewString(),
		Kind:      notify.KindEmailVerification,
		Email:     email,
		Token:     token,
		CreatedAt: now,
	})
	if err != nil {
		s.logger.Error(ctx, "Verification delivery failed", "account_id", account.ID, "error", err)
		return nil, common.ErrServiceUnavailable
	}

	s.logger.Info(ctx, "Registered", "account_id", account.ID)
	return &Message{Message: MsgRegistered}, nil
}

// resendVerification replaces the verification token of an unverified
// account and delivers the new one. Register routes here when the owner of a
// pending account registers again with the same password, which is the only
// way back after a delivery failure.
func (s *AuthService) resendVerification(ctx context.Context, email string) (*Message, error) {
	token, err := common.MakeRandHexString(oneTimeTokenBytes)
	if err != nil {
		s.logger.Error(ctx, "Token generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	account, err := s.mutate(ctx, "resend_verification", common.ErrAlreadyExists, byEmail(ctx, email),
		func(a *models.Account, now time.Time) (bool, error) {
			if a.IsVerified {
				return false, common.ErrAlreadyExists
			}
			a.VerificationToken = &token
			return true, nil
		})
	if err != nil {
		return nil, err
	}

	err = s.deliver(ctx, notify.Message{
		ID:        uuid.NewString(),
		Kind:      notify.KindEmailVerification,
		Email:     account.Email,
		Token:     token,
		CreatedAt: s.clock(),
	})
	if err != nil {
		s.logger.Error(ctx, "Verification delivery failed", "account_id", account.ID, "error", err)
		return nil, common.ErrServiceUnavailable
	}

	s.logger.Info(ctx, "Verification resent", "account_id", account.ID)
	return &Message{Message: MsgRegistered}, nil
}

// Login checks the credentials and issues a bearer token. Unknown emails
// and wrong passwords both yield common.ErrInvalidCredentials; locked or
// inactive accounts yield common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	email = validation.NormalizeEmail(email)

	var lockedNow bool
	load := func(repo accounts.Repository) (*models.Account, error) {
		a, err := repo.GetByEmail(ctx, email)
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
		}
		return a, err
	}
	apply := func(a *models.Account, now time.Time) (bool, error) {
		lockedNow = false
		state := s.policy.Normalize(a.Lockout(), now)
		if !a.IsActive || s.policy.Blocked(state, now) {
			return false, common.ErrorUnauthorized
		}
		if !s.hasher.Verify(password, a.PasswordHash) {
			next, locked := s.policy.Fail(state, now)
			a.SetLockout(next)
			lockedNow = locked
			return true, common.ErrInvalidCredentials
		}
		a.SetLockout(s.policy.Succeed())
		a.LastLogin = &now
		return true, nil
	}

	account, err := s.mutate(ctx, "login", common.ErrInvalidCredentials, load, apply)
	if lockedNow && errors.Is(err, common.ErrInvalidCredentials) {
		s.logger.Warn(ctx, "Account locked", "account_id", account.ID, "until", account.LockedUntil)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Logged in", "account_id", account.ID)
	return s.issue(ctx, account)
}

// RefreshToken issues a fresh token for an already authenticated subject.
// Nothing is persisted.
func (s *AuthService) RefreshToken(ctx context.Context, subject string) (_ *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.RefreshToken")
	defer func() { endSpan(span, err) }()

	account, err := s.activeAccount(ctx, subject)
	if err != nil {
		return nil, err
	}
	if s.policy.Blocked(account.Lockout(), s.clock()) {
		return nil, common.ErrorUnauthorized
	}
	return s.issue(ctx, account)
}

// GetUserInfo returns the public view of the subject's account.
func (s *AuthService) GetUserInfo(ctx context.Context, subject string) (_ *models.PublicUser, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.GetUserInfo")
	defer func() { endSpan(span, err) }()

	account, err := s.activeAccount(ctx, subject)
	if err != nil {
		return nil, err
	}
	return account.Public(), nil
}

// ChangePassword replaces the password after checking the current one.
// A wrong current password counts as a failed login attempt.
func (s *AuthService) ChangePassword(ctx context.Context, subject, currentPassword, newPassword string) (_ *Message, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.ChangePassword")
	defer func() { endSpan(span, err) }()

	if err := validation.Password(newPassword); err != nil {
		return nil, err
	}
	if subject == "" {
		return nil, common.ErrorUnauthorized
	}

	newHash := s.lazyHash(newPassword)
	var lockedNow bool
	account, err := s.mutate(ctx, "change_password", common.ErrorUnauthorized, byID(ctx, subject),
		func(a *models.Account, now time.Time) (bool, error) {
			lockedNow = false
			state := s.policy.Normalize(a.Lockout(), now)
			if !a.IsActive || s.policy.Blocked(state, now) {
				return false, common.ErrorUnauthorized
			}
			if !s.hasher.Verify(currentPassword, a.PasswordHash) {
				next, locked := s.policy.Fail(state, now)
				a.SetLockout(next)
				lockedNow = locked
				return true, common.ErrInvalidCredentials
			}
			hash, err := newHash()
			if err != nil {
				s.logger.Error(ctx, "Password hashing failed", "error", err)
				return false, common.ErrorInternal
			}
			a.PasswordHash = hash
			a.ResetToken = nil
			a.ResetTokenExpires = nil
			a.SetLockout(s.policy.Succeed())
			return true, nil
		})
	if lockedNow && errors.Is(err, common.ErrInvalidCredentials) {
		s.logger.Warn(ctx, "Account locked", "account_id", account.ID, "until", account.LockedUntil)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Password changed", "account_id", account.ID)
	return &Message{Message: MsgPasswordChanged}, nil
}

// RequestPasswordReset always answers with MsgResetRequested. When the
// account exists a reset token is stored and handed to the notifier.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (_ *Message, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.RequestPasswordReset")
	defer func() { endSpan(span, err) }()

	done := &Message{Message: MsgResetRequested}
	email = validation.NormalizeEmail(email)

	token, err := common.MakeRandHexString(oneTimeTokenBytes)
	if err != nil {
		s.logger.Error(ctx, "Token generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	errNoAccount := errors.New("no account")
	account, err := s.mutate(ctx, "request_password_reset", errNoAccount, byEmail(ctx, email),
		func(a *models.Account, now time.Time) (bool, error) {
			expires := now.Add(s.resetTokenTTL)
			a.ResetToken = &token
			a.ResetTokenExpires = &expires
			return true, nil
		})
	if errors.Is(err, errNoAccount) {
		return done, nil
	}
	if err != nil {
		return nil, err
	}

	err = s.deliver(ctx, notify.Message{
		ID:        uuid.NewString(),
		Kind:      notify.KindPasswordReset,
		Email:     account.Email,
		Token:     token,
		ExpiresAt: *account.ResetTokenExpires,
		CreatedAt: s.clock(),
	})
	if err != nil {
		// the answer must not depend on whether the account exists
		s.logger.Error(ctx, "Reset delivery failed", "account_id", account.ID, "error", err)
	}

	return done, nil
}

// ConfirmPasswordReset sets a new password using a reset token. The token
// is consumed on success; an expired token is cleared and rejected.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) (_ *Message, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.ConfirmPasswordReset")
	defer func() { endSpan(span, err) }()

	if err := validation.Password(newPassword); err != nil {
		return nil, err
	}
	if validation.Token(token) != nil {
		return nil, common.ErrInvalidToken
	}

	newHash := s.lazyHash(newPassword)
	account, err := s.mutate(ctx, "confirm_password_reset", common.ErrInvalidToken, byResetToken(ctx, token),
		func(a *models.Account, now time.Time) (bool, error) {
			if a.ResetTokenExpires == nil || !a.ResetTokenExpires.After(now) {
				a.ResetToken = nil
				a.ResetTokenExpires = nil
				return true, common.ErrInvalidToken
			}
			hash, err := newHash()
			if err != nil {
				s.logger.Error(ctx, "Password hashing failed", "error", err)
				return false, common.ErrorInternal
			}
			a.PasswordHash = hash
			a.ResetToken = nil
			a.ResetTokenExpires = nil
			a.SetLockout(s.policy.Succeed())
			return true, nil
		})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Password reset", "account_id", account.ID)
	return &Message{Message: MsgPasswordReset}, nil
}

// VerifyEmail marks the account behind token as verified and consumes the
// token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (_ *Message, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.VerifyEmail")
	defer func() { endSpan(span, err) }()

	if validation.Token(token) != nil {
		return nil, common.ErrInvalidToken
	}

	account, err := s.mutate(ctx, "verify_email", common.ErrInvalidToken, byVerificationToken(ctx, token),
		func(a *models.Account, now time.Time) (bool, error) {
			a.IsVerified = true
			a.VerificationToken = nil
			return true, nil
		})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Email verified", "account_id", account.ID)
	return &Message{Message: MsgEmailVerified}, nil
}

// Logout acknowledges the end of a session. Tokens are stateless, so unless
// a Revoker is configured the token stays valid until it expires.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) (_ *Message, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Logout")
	defer func() { endSpan(span, err) }()

	if claims == nil || claims.Subject == "" {
		return nil, common.ErrorUnauthorized
	}

	if s.revoker != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.logger.Error(ctx, "Token revocation failed", "account_id", claims.Subject, "error", err)
			return nil, common.ErrServiceUnavailable
		}
	}

	s.logger.Info(ctx, "Logged out", "account_id", claims.Subject)
	return &Message{Message: MsgLoggedOut}, nil
}

// --- helpers below ---

func (s *AuthService) accounts() accounts.Repository {
	return s.repomanager.Accounts(s.db)
}

func (s *AuthService) clock() time.Time { return s.now().UTC() }

// activeAccount loads the subject's account, treating a missing or
// inactive account as unauthorized.
func (s *AuthService) activeAccount(ctx context.Context, subject string) (*models.Account, error) {
	if subject == "" {
		return nil, common.ErrorUnauthorized
	}
	account, err := s.accounts().GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "Account lookup failed", "account_id", subject, "error", err)
		return nil, common.ErrorInternal
	}
	if !account.IsActive {
		return nil, common.ErrorUnauthorized
	}
	return account, nil
}

func (s *AuthService) issue(ctx context.Context, a *models.Account) (*AuthResult, error) {
	issued, err := s.tokens.Issue(a.ID, a.Email, s.clock(), s.tokenTTL)
	if err != nil {
		s.logger.Error(ctx, "Token issue failed", "account_id", a.ID, "error", err)
		return nil, common.ErrorInternal
	}
	return &AuthResult{
		AccessToken: issued.Token,
		TokenType:   common.TokenType,
		ExpiresIn:   int64(s.tokenTTL / time.Second),
		ExpiresAt:   issued.ExpiresAt,
		User:        a.Public(),
	}, nil
}

func (s *AuthService) deliver(ctx context.Context, msg notify.Message) error {
	if s.notifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.notifyTimeout)
		defer cancel()
	}
	return s.notifier.Notify(ctx, msg)
}

// lazyHash hashes plain on first call and caches the result, so a retried
// mutation does not pay for bcrypt twice.
func (s *AuthService) lazyHash(plain string) func() (string, error) {
	var hash string
	return func() (string, error) {
		if hash != "" {
			return hash, nil
		}
		h, err := s.hasher.Hash(plain)
		if err != nil {
			return "", err
		}
		hash = h
		return hash, nil
	}
}

func byID(ctx context.Context, id string) func(accounts.Repository) (*models.Account, error) {
	return func(r accounts.Repository) (*models.Account, error) { return r.GetByID(ctx, id) }
}

func byEmail(ctx context.Context, email string) func(accounts.Repository) (*models.Account, error) {
	return func(r accounts.Repository) (*models.Account, error) { return r.GetByEmail(ctx, email) }
}

func byResetToken(ctx context.Context, token string) func(accounts.Repository) (*models.Account, error) {
	return func(r accounts.Repository) (*models.Account, error) { return r.GetByResetToken(ctx, token) }
}

func byVerificationToken(ctx context.Context, token string) func(accounts.Repository) (*models.Account, error) {
	return func(r accounts.Repository) (*models.Account, error) { return r.GetByVerificationToken(ctx, token) }
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("auth.outcome", err.Error()))
		if errors.Is(err, common.ErrorInternal) || errors.Is(err, common.ErrServiceUnavailable) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
