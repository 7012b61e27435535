package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
	"github.com/phaseflow/phaseflow/internal/store"
)

func newTestManager(t *testing.T, ttl time.Duration) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m, err := NewManager(st, "test-secret", ttl, zerolog.Nop())
	require.NoError(t, err)
	return m, st
}

func TestStartAndValidate(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	token, sc, err := m.Start("robin")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "robin", sc.Nickname)

	got, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, sc.SessionID, got.SessionID)
	assert.Equal(t, "robin", got.Nickname)
}

func TestStart_RequiresNickname(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	_, _, err := m.Start("")
	assert.ErrorIs(t, err, perrors.ErrValidation)
}

func TestValidate_RejectsTamperedToken(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Nickname:         "mallory",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "forged"},
	})
	forged, err := other.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	_, err = m.Validate(forged)
	assert.ErrorIs(t, err, perrors.ErrAuth)
}

func TestValidate_RejectsExpiredToken(t *testing.T) {
	m, _ := newTestManager(t, -time.Minute)

	token, _, err := m.Start("robin")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, perrors.ErrAuth)
}

func TestValidate_PrunedSessionNotFound(t *testing.T) {
	m, st := newTestManager(t, time.Hour)

	token, _, err := m.Start("robin")
	require.NoError(t, err)

	// Drop the session row while the token is still cryptographically valid.
	_, err = st.PruneSessionContexts(-time.Second)
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestBindProject(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	token, sc, err := m.Start("robin")
	require.NoError(t, err)
	require.NoError(t, m.BindProject(sc.SessionID, "proj-1"))

	got, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "proj-1", got.ProjectID)

	assert.ErrorIs(t, m.BindProject("missing", "proj-1"), perrors.ErrNotFound)
}
