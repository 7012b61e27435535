// Package session issues and validates the signed session tokens that tie an
// anonymous nickname to its projects. There are no user accounts; a session
// token is the only identity a client holds.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
	"github.com/phaseflow/phaseflow/internal/store"
)

// Claims is the JWT payload for a session token. The session ID travels in
// the registered subject claim.
type Claims struct {
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}

// Manager creates, validates, and expires sessions.
type Manager struct {
	store  *store.Store
	secret []byte
	ttl    time.Duration
	logger zerolog.Logger
}

// NewManager creates a session manager. The secret signs tokens with HS256;
// ttl bounds both the token lifetime and how long an idle session survives
// in the store.
func NewManager(st *store.Store, secret string, ttl time.Duration, logger zerolog.Logger) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &Manager{
		store:  st,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger.With().Str("component", "session").Logger(),
	}, nil
}

// Start creates a new session for a nickname and returns its signed token.
func (m *Manager) Start(nickname string) (string, *store.SessionContext, error) {
	if nickname == "" {
		return "", nil, fmt.Errorf("%w: nickname is required", perrors.ErrValidation)
	}

	sc := &store.SessionContext{
		SessionID: uuid.NewString(),
		Nickname:  nickname,
	}
	if err := m.store.SaveSessionContext(sc); err != nil {
		return "", nil, err
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sc.SessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	m.logger.Info().Str("session_id", sc.SessionID).Str("nickname", nickname).Msg("session started")
	return signed, sc, nil
}

// Validate parses a session token and loads its context, refreshing the
// idle timer. An expired or tampered token is an auth failure; a valid token
// whose session was pruned surfaces as not found.
func (m *Manager) Validate(tokenString string) (*store.SessionContext, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrAuth, err)
	}

	sc, err := m.store.GetSessionContext(claims.Subject)
	if err != nil {
		return nil, err
	}
	if err := m.store.TouchSessionContext(sc.SessionID); err != nil {
		return nil, err
	}
	return sc, nil
}

// BindProject records a session's most recent project so a returning client
// can resume where it left off.
func (m *Manager) BindProject(sessionID, projectID string) error {
	sc, err := m.store.GetSessionContext(sessionID)
	if err != nil {
		return err
	}
	sc.ProjectID = projectID
	return m.store.SaveSessionContext(sc)
}

// PruneIdle deletes sessions idle longer than the manager's TTL.
func (m *Manager) PruneIdle() (int64, error) {
	n, err := m.store.PruneSessionContexts(m.ttl)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info().Int64("pruned", n).Msg("idle sessions removed")
	}
	return n, nil
}
