// Package token adapts the external session-issuing collaborator. The core
// resolves proofs to an account ID and stops there; this adapter mints the
// session credential the transport layer hands back.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "trustgate/pkg/domain-errors"
	id "trustgate/pkg/domain"
)

// Issuer mints session tokens for resolved accounts.
type Issuer interface {
	Issue(accountID id.AccountID, issuedAt time.Time) (string, error)
}

// Verifier checks a presented session token and returns the account it was
// issued to.
type Verifier interface {
	Verify(token string) (id.AccountID, error)
}

// JWTIssuer signs HS256 session tokens. Token policy (TTL, claims) belongs to
// the session collaborator, not the identity core.
type JWTIssuer struct {
	signingKey []byte
	ttl        time.Duration
}

func NewJWTIssuer(signingKey string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{signingKey: []byte(signingKey), ttl: ttl}
}

func (i *JWTIssuer) Issue(accountID id.AccountID, issuedAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
		Issuer:    "trustgate",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}
	return signed, nil
}

func (i *JWTIssuer) Verify(tokenStr string) (id.AccountID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return i.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "session token is invalid")
	}
	accountID, err := id.ParseAccountID(claims.Subject)
	if err != nil {
		return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "session token subject is not an account id")
	}
	return accountID, nil
}
