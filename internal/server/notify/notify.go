// Package notify delivers out-of-band account messages (email verification
// and password reset links) on behalf of the auth engine.
package notify

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

type Kind string

const (
	KindEmailVerification Kind = "email_verification"
	KindPasswordReset     Kind = "password_reset"
)

// Message is one delivery request. Token is the secret the recipient must
// present back; ExpiresAt is zero when the token does not expire.
type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier hands a message to a delivery channel. Implementations must not
// block indefinitely; callers pass a context with a deadline.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes delivery intents to the log instead of sending them.
// Meant for local development only: the token ends up in the log at debug
// level.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l.With("module", "log_notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	n.logger.Info(ctx, "Notification queued", "id", msg.ID, "kind", msg.Kind, "email", msg.Email)
	n.logger.Debug(ctx, "Notification token", "id", msg.ID, "token", msg.Token)
	return nil
}
