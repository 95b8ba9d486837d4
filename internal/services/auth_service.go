package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prudhvinik1/equiptrack/internal/metrics"
	"github.com/prudhvinik1/equiptrack/internal/models"
	"github.com/prudhvinik1/equiptrack/internal/session"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthService hands out one session.Store per client session and issues
// signed tokens that point at it.
type AuthService struct {
	verifier  session.Verifier
	jwtSecret string
	timeout   time.Duration
	clock     clockwork.Clock
	log       *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*trackedSession
}

type trackedSession struct {
	store    *session.Store
	username string
}

type LoginRequest struct {
	Username  string
	Password  string
	SessionID string // Optional - empty means open a new session
}

type LoginResponse struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

type TokenClaims struct {
	Username  string
	SessionID string
}

type AuthOption func(*AuthService)

func WithClock(clock clockwork.Clock) AuthOption {
	return func(s *AuthService) {
		s.clock = clock
	}
}

func WithLogger(log *zap.Logger) AuthOption {
	return func(s *AuthService) {
		s.log = log
	}
}

func NewAuthService(
	verifier session.Verifier,
	jwtSecret string,
	timeout time.Duration,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		verifier:  verifier,
		jwtSecret: jwtSecret,
		timeout:   timeout,
		clock:     clockwork.NewRealClock(),
		log:       zap.NewNop(),
		sessions:  make(map[string]*trackedSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout <= 0 {
		s.timeout = session.DefaultTimeout
	}
	return s
}

// Login checks the credentials and, on success, returns a token for a
// logged-in session. When req.SessionID names a live session that session is
// logged into again, which restarts its expiry window. A rejected login
// leaves any existing session as it was.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	sessionID := req.SessionID
	tracked := s.lookup(sessionID)
	if tracked == nil {
		sessionID = uuid.New().String()
		tracked = &trackedSession{
			store:    s.newStore(sessionID),
			username: req.Username,
		}
	}

	if !tracked.store.Login(req.Username, req.Password) {
		metrics.TrackAuthAttempt(false)
		s.log.Info("login rejected", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}
	metrics.TrackAuthAttempt(true)

	s.register(sessionID, tracked)

	expiresAt, ok := tracked.store.ExpiresAt()
	if !ok {
		// Expired between Login and here; only possible with a tiny timeout.
		return nil, ErrSessionExpired
	}

	token, err := s.generateToken(req.Username, sessionID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Info("login succeeded",
		zap.String("username", req.Username),
		zap.String("session_id", sessionID),
		zap.Time("expires_at", expiresAt),
	)

	return &LoginResponse{
		Token:     token,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
	}, nil
}

// Logout ends the session the token points at. Logging out a session that
// already ended is not an error.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.verifyToken(tokenString, false)
	if err != nil {
		return err
	}

	s.mu.Lock()
	tracked, ok := s.sessions[claims.SessionID]
	delete(s.sessions, claims.SessionID)
	s.updateActiveSessions()
	s.mu.Unlock()

	if ok {
		tracked.store.Logout()
		s.log.Info("logout", zap.String("session_id", claims.SessionID))
	}
	return nil
}

// Session reports the state of the session behind tokenString.
func (s *AuthService) Session(ctx context.Context, tokenString string) (*models.SessionInfo, error) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}

	tracked := s.lookup(claims.SessionID)
	if tracked == nil || !tracked.store.IsAuthenticated() {
		return nil, ErrSessionExpired
	}

	info := &models.SessionInfo{
		ID:            claims.SessionID,
		Username:      tracked.username,
		Authenticated: true,
	}
	if expiresAt, ok := tracked.store.ExpiresAt(); ok {
		info.ExpiresAt = &expiresAt
	}
	return info, nil
}

// ActiveSessions returns the number of logged-in sessions.
func (s *AuthService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close logs out every session and stops their timers.
func (s *AuthService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*trackedSession)
	s.updateActiveSessions()
	s.mu.Unlock()

	for _, tracked := range sessions {
		tracked.store.Logout()
	}
}

func (s *AuthService) VerifyToken(tokenString string) (*TokenClaims, error) {
	return s.verifyToken(tokenString, true)
}

func (s *AuthService) newStore(sessionID string) *session.Store {
	return session.NewStore(s.verifier,
		session.WithClock(s.clock),
		session.WithTimeout(s.timeout),
		session.WithExpiryHook(func() {
			s.expired(sessionID)
		}),
	)
}

func (s *AuthService) lookup(sessionID string) *trackedSession {
	if sessionID == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

func (s *AuthService) register(sessionID string, tracked *trackedSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = tracked
	s.updateActiveSessions()
}

// expired drops a session the timer logged out, unless a re-login revived
// it in the meantime.
func (s *AuthService) expired(sessionID string) {
	s.mu.Lock()
	tracked, ok := s.sessions[sessionID]
	if ok && !tracked.store.IsAuthenticated() {
		delete(s.sessions, sessionID)
	}
	s.updateActiveSessions()
	s.mu.Unlock()

	metrics.SessionExpirations.Inc()
	s.log.Info("session expired", zap.String("session_id", sessionID))
}

// updateActiveSessions publishes the registry size. Caller holds mu.
func (s *AuthService) updateActiveSessions() {
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

func (s *AuthService) generateToken(username, sessionID string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"jti": sessionID,
		"exp": expiresAt.Unix(),
		"iat": s.clock.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) verifyToken(tokenString string, validateClaims bool) (*TokenClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.clock.Now)}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, opts...)

	if err != nil {
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	username, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	sessionID, ok := claims["jti"].(string)
	if !ok || sessionID == "" {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		Username:  username,
		SessionID: sessionID,
	}, nil
}
