package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demeter/internal/models"
)

const testSecret = "0123456789abcdef0123"

func TestIssueAndVerify(t *testing.T) {
	m, err := NewManager(testSecret, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	access, err := m.IssueAccess(models.ID(42), "ann")
	require.NoError(t, err)
	claims, err := m.VerifyAccess(access.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, models.ID(42), id)
	assert.Equal(t, "ann", claims.Username)

	_, err = m.VerifyRefresh(access.Token)
	assert.ErrorIs(t, err, ErrWrongType)

	refresh, err := m.IssueRefresh(models.ID(42), "ann")
	require.NoError(t, err)
	assert.NotEqual(t, access.Token, refresh.Token)
	_, err = m.VerifyRefresh(refresh.Token)
	assert.NoError(t, err)
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	m, err := NewManager(testSecret, time.Minute, time.Hour)
	require.NoError(t, err)

	issued, err := m.IssueAccess(1, "ann")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.VerifyAccess(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewManager("another-secret-of-length", time.Minute, time.Hour)
	require.NoError(t, err)
	foreign, err := other.IssueAccess(1, "ann")
	require.NoError(t, err)
	m.now = time.Now
	_, err = m.VerifyAccess(foreign.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager("short", time.Minute, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(testSecret, 0, time.Hour)
	assert.Error(t, err)
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("12345")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
}

func TestCookies(t *testing.T) {
	c := NewCookie(AccessCookie, "tok", 15*time.Minute, false)
	assert.Equal(t, "/api", c.Path)
	assert.Equal(t, 900, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	cleared := ExpiredCookie(RefreshCookie, false)
	assert.Less(t, cleared.MaxAge, 0)
	assert.Empty(t, cleared.Value)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}
