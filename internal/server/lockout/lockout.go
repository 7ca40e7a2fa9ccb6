// Package lockout implements the brute-force lockout rules for an account.
// Everything here is pure: callers load state, apply a transition and
// persist the result themselves.
package lockout

import "time"

const (
	DefaultThreshold = 5
	DefaultDuration  = 15 * time.Minute
)

// Policy configures when an account gets locked and for how long.
type Policy struct {
	Threshold int
	Duration  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, Duration: DefaultDuration}
}

// State is the lockout-relevant slice of an account.
type State struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// Blocked reports whether the lock is still in force at now.
func (p Policy) Blocked(s State, now time.Time) bool {
	return s.LockedUntil != nil && s.LockedUntil.After(now)
}

// Normalize clears a lock that has already lapsed, resetting the counter.
// Active locks and unlocked states are returned unchanged.
func (p Policy) Normalize(s State, now time.Time) State {
	if s.LockedUntil != nil && !s.LockedUntil.After(now) {
		return State{}
	}
	return s
}

// Fail records a failed credential check. The second result is true when
// this failure is the one that locked the account.
func (p Policy) Fail(s State, now time.Time) (State, bool) {
	next := State{FailedAttempts: s.FailedAttempts + 1, LockedUntil: s.LockedUntil}
	if next.FailedAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		next.LockedUntil = &until
		return next, true
	}
	return next, false
}

// Succeed returns the state after a successful credential check.
func (p Policy) Succeed() State {
	return State{}
}
