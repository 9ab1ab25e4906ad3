package auth

import (
	"context"
	"testing"
	"time"

	"github.com/fathima-sithara/realtime-service/internal/apperr"
	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/fathima-sithara/realtime-service/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "test-secret"

func newAuth(t *testing.T) (*Authenticator, *Issuer) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.PutUser(&domain.User{ID: "u1", Email: "a@x.io", Username: "alice"})
	v, err := NewJWTValidator("HS256", secret, "")
	require.NoError(t, err)
	return NewAuthenticator(v, store, zap.NewNop().Sugar()), NewIssuer(secret, 0)
}

func TestAuthenticateSuccess(t *testing.T) {
	a, iss := newAuth(t)
	tok, err := iss.Generate("u1")
	require.NoError(t, err)

	p, err := a.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "a@x.io", p.Email)
}

func TestAuthenticateFailures(t *testing.T) {
	a, iss := newAuth(t)

	unknown, err := iss.Generate("ghost")
	require.NoError(t, err)
	wrongKey, err := NewIssuer("other-secret", time.Hour).Generate("u1")
	require.NoError(t, err)
	expiredClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u1",
		"exp":    time.Now().Add(-time.Minute).Unix(),
	})
	expiredTok, err := expiredClaims.SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"wrong key", wrongKey},
		{"expired", expiredTok},
		{"unknown user", unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), tt.token)
			assert.ErrorIs(t, err, apperr.ErrAuthentication)
		})
	}
}

func TestValidateSubFallback(t *testing.T) {
	v, err := NewJWTValidator("HS256", secret, "")
	require.NoError(t, err)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u9",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	uid, err := v.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "u9", uid)
}

func TestIssuerDefaultTTL(t *testing.T) {
	iss := NewIssuer(secret, 0)
	tok, err := iss.Generate("u1")
	require.NoError(t, err)

	var c Claims
	_, err = jwt.ParseWithClaims(tok, &c, func(*jwt.Token) (interface{}, error) { return []byte(secret), nil })
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), c.ExpiresAt.Time, time.Minute)
}

func TestParseBearerToken(t *testing.T) {
	tok, err := ParseBearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = ParseBearerToken("Basic abc")
	assert.Error(t, err)
	_, err = ParseBearerToken("")
	assert.Error(t, err)
}
