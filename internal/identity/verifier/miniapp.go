// Package verifier implements the three provider verifiers. Each validates a
// provider-specific proof and normalizes the result into a VerifiedIdentity.
package verifier

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"trustgate/internal/identity/crypto"
	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
	"trustgate/pkg/requestcontext"
)

// miniAppKeyLabel is the domain-separation label the messaging platform uses
// when deriving the payload signing key from the bot secret.
const miniAppKeyLabel = "WebAppData"

// MiniApp verifies the signed key/value payload a messaging-platform mini-app
// session presents.
type MiniApp struct {
	botSecret string
	maxAge    time.Duration
}

func NewMiniApp(botSecret string) *MiniApp {
	return &MiniApp{botSecret: botSecret, maxAge: time.Hour}
}

type miniAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	IsPremium bool   `json:"is_premium"`
}

// Verify checks the payload signature and freshness, then extracts the user
// claims. The signature covers the canonical representation of every field
// except "hash": keys sorted, joined as k=v lines.
func (v *MiniApp) Verify(ctx context.Context, payload string) (models.VerifiedIdentity, error) {
	values, err := url.ParseQuery(payload)
	if err != nil {
		return models.VerifiedIdentity{}, dErrors.Wrap(err, dErrors.CodeInvalidProof, "payload is not a valid query string")
	}

	supplied := values.Get("hash")
	if supplied == "" {
		return models.VerifiedIdentity{}, dErrors.New(dErrors.CodeInvalidProof, "payload is missing its hash field")
	}

	lines := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		lines = append(lines, key+"="+values.Get(key))
	}
	sort.Strings(lines)
	checkString := strings.Join(lines, "\n")

	secret := crypto.KeyedHash([]byte(miniAppKeyLabel), []byte(v.botSecret))
	expected := crypto.KeyedHash(secret, []byte(checkString))

	suppliedRaw, err := hex.DecodeString(supplied)
	if err != nil || !crypto.EqualMAC(suppliedRaw, expected) {
		return models.VerifiedIdentity{}, dErrors.New(dErrors.CodeInvalidProof, "payload signature mismatch")
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return models.VerifiedIdentity{}, dErrors.New(dErrors.CodeInvalidProof, "auth_date is not a unix timestamp")
	}
	issuedAt := time.Unix(authDate, 0)
	if requestcontext.Now(ctx).Sub(issuedAt) > v.maxAge {
		return models.VerifiedIdentity{}, dErrors.New(dErrors.CodeExpiredProof, "payload is older than one hour")
	}

	var user miniAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return models.VerifiedIdentity{}, dErrors.Wrap(err, dErrors.CodeInvalidProof, "user claims are not parseable")
	}
	if user.ID == 0 {
		return models.VerifiedIdentity{}, dErrors.New(dErrors.CodeInvalidProof, "user claims are missing an id")
	}

	displayName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	return models.VerifiedIdentity{
		ProviderKind: id.ProviderMessaging,
		ProviderID:   strconv.FormatInt(user.ID, 10),
		Claims: models.Claims{
			DisplayName: displayName,
			Handle:      user.Username,
			Premium:     user.IsPremium,
		},
	}, nil
}
