package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTIssuer_RoundTrip(t *testing.T) {
	issuer := NewJWTIssuer("secret")

	token, err := issuer.GenerateToken("64b7f0c2a1b2c3d4e5f60718")
	require.NoError(t, err)

	userID, err := issuer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", userID)
}

func TestJWTIssuer_UserIDClaim(t *testing.T) {
	issuer := NewJWTIssuer("secret")
	token, err := issuer.GenerateToken("abc")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return []byte("secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "abc", claims["userId"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), exp.Time, time.Minute)
}

func TestJWTIssuer_Expired(t *testing.T) {
	issuer := NewJWTIssuer("secret")
	issuer.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	token, err := issuer.GenerateToken("abc")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_WrongSecret(t *testing.T) {
	token, err := NewJWTIssuer("one").GenerateToken("abc")
	require.NoError(t, err)

	_, err = NewJWTIssuer("two").ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_RejectsUnsignedToken(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": "abc"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTIssuer("secret").ParseToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_Garbage(t *testing.T) {
	_, err := NewJWTIssuer("secret").ParseToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
