package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTimeout is how long a session stays logged in after the last login.
const DefaultTimeout = 10 * time.Minute

// State is the authentication state of a Store.
type State uint8

const (
	// LoggedOut is the initial state.
	LoggedOut State = iota

	// LoggedIn is entered by a successful Login.
	LoggedIn
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case LoggedOut:
		return "LOGGED_OUT"
	case LoggedIn:
		return "LOGGED_IN"
	default:
		return "UNKNOWN"
	}
}

// Store holds one session: an authenticated flag and at most one pending
// expiry timer. A Login that succeeds (re)arms the timer; when the timer
// fires the store logs itself out.
type Store struct {
	mu sync.Mutex

	verifier Verifier
	clock    clockwork.Clock
	timeout  time.Duration

	authenticated bool
	timer         clockwork.Timer
	expiresAt     time.Time

	// generation is bumped on every arm and disarm so a callback that lost
	// the race against Stop cannot log out a newer session.
	generation uint64

	onExpire func()
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to schedule expiry.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithExpiryHook registers fn to run after the timer has logged the store out.
// It is not called for explicit Logout.
func WithExpiryHook(fn func()) Option {
	return func(s *Store) {
		s.onExpire = fn
	}
}

// NewStore creates a logged-out store that checks credentials with verifier.
func NewStore(verifier Verifier, opts ...Option) *Store {
	s := &Store{
		verifier: verifier,
		clock:    clockwork.NewRealClock(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login returns true and arms the expiry timer when verifier accepts the
// pair. A rejected pair returns false and leaves the store untouched.
func (s *Store) Login(username, password string) bool {
	if s.verifier == nil || !s.verifier.Verify(username, password) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = true
	s.startSessionTimer()
	return true
}

// Logout clears the session and cancels any pending expiry. Safe to call
// any number of times.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = false
	s.stopSessionTimer()
}

// IsAuthenticated reports the current flag. The timer may flip it to false
// right after this returns.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// State returns LoggedIn or LoggedOut.
func (s *Store) State() State {
	if s.IsAuthenticated() {
		return LoggedIn
	}
	return LoggedOut
}

// ExpiresAt returns when the pending timer fires. ok is false when logged out.
func (s *Store) ExpiresAt() (expiresAt time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated || s.timer == nil {
		return time.Time{}, false
	}
	return s.expiresAt, true
}

// Timeout returns the configured session lifetime.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// startSessionTimer replaces any pending timer with a fresh one. Caller holds mu.
func (s *Store) startSessionTimer() {
	s.stopSessionTimer()

	gen := s.generation
	s.expiresAt = s.clock.Now().Add(s.timeout)
	s.timer = s.clock.AfterFunc(s.timeout, func() {
		s.expire(gen)
	})
}

// stopSessionTimer cancels the pending timer, if any. Caller holds mu.
func (s *Store) stopSessionTimer() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.expiresAt = time.Time{}
}

func (s *Store) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.authenticated = false
	s.generation++
	s.timer = nil
	s.expiresAt = time.Time{}
	hook := s.onExpire
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}
