package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "trustgate/pkg/domain"
)

func TestJWTIssuer_RoundTrip(t *testing.T) {
	issuer := NewJWTIssuer("test-key", time.Hour)
	accountID := id.NewAccountID()
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	signed, err := issuer.Issue(accountID, issuedAt)
	require.NoError(t, err)

	parsed, err := jwt.ParseWithClaims(signed, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (any, error) {
		return []byte("test-key"), nil
	}, jwt.WithTimeFunc(func() time.Time { return issuedAt.Add(time.Minute) }))
	require.NoError(t, err)

	claims := parsed.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, accountID.String(), claims.Subject)
	assert.Equal(t, issuedAt.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestJWTIssuer_WrongKeyRejected(t *testing.T) {
	issuer := NewJWTIssuer("right-key", time.Hour)
	signed, err := issuer.Issue(id.NewAccountID(), time.Now())
	require.NoError(t, err)

	_, err = jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return []byte("wrong-key"), nil
	})
	assert.Error(t, err)
}

func TestJWTIssuer_VerifyReturnsSubject(t *testing.T) {
	issuer := NewJWTIssuer("test-key", time.Hour)
	accountID := id.NewAccountID()

	signed, err := issuer.Issue(accountID, time.Now())
	require.NoError(t, err)

	got, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, accountID, got)
}

func TestJWTIssuer_VerifyRejectsForeignToken(t *testing.T) {
	signed, err := NewJWTIssuer("other-key", time.Hour).Issue(id.NewAccountID(), time.Now())
	require.NoError(t, err)

	_, err = NewJWTIssuer("test-key", time.Hour).Verify(signed)
	assert.Error(t, err)

	_, err = NewJWTIssuer("test-key", time.Hour).Verify("not-a-token")
	assert.Error(t, err)
}
