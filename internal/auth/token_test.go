package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = Identity{UserID: "7d1c9a52-6d0e-4a57-8f7e-2f3b7f0f2a11", Username: "alice", Email: "alice@x.com"}

func TestIssueAndParse(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"), time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(alice)
	require.NoError(t, err)

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	admin := alice
	admin.IsAdmin = true
	token, err = issuer.Issue(admin)
	require.NoError(t, err)
	got, err = issuer.Parse(token)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
}

func TestTokenCarriesExplicitExpiry(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"), 0)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, issuer.TTL())

	token, err := issuer.Issue(alice)
	require.NoError(t, err)

	claims := Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.Equal(t, 2*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.Equal(t, alice.UserID, claims.Subject)
	assert.Equal(t, "alice@x.com", claims.Email)
}

func TestParseExpired(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"), time.Minute)
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := issuer.Issue(alice)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseWrongSecret(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"), time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer([]byte("other"), time.Hour)
	require.NoError(t, err)

	token, err := other.Issue(alice)
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTampered(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"), time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(alice)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// Re-sign the header and claims of an admin identity without the key.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:  alice.UserID,
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   alice.UserID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	forgedString, err := forged.SigningString()
	require.NoError(t, err)

	_, err = issuer.Parse(forgedString + "." + parts[2])
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	issuer, err := NewIssuer([]byte("secret"), time.Hour)
	require.NoError(t, err)

	claims := Claims{
		UserID: alice.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   alice.UserID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer(nil, time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), alice)
	got, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, alice, got)

	_, ok = IdentityFromContext(WithIdentity(context.Background(), Identity{}))
	assert.False(t, ok)
}
