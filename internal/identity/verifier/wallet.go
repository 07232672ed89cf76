package verifier

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/mr-tron/base58"

	"trustgate/internal/identity/crypto"
	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
	"trustgate/pkg/requestcontext"
)

// WalletProof is the input for a wallet-signature login. TxMessage carries a
// serialized transaction for wallet environments that only sign transactions;
// when set, the signature is verified over its decoded bytes instead of the
// challenge text.
type WalletProof struct {
	Address   string
	Signature string
	Message   string
	TxMessage string
}

// Wallet verifies detached ed25519 wallet signatures with a clock-skew
// tolerant freshness window on the embedded challenge timestamp.
type Wallet struct {
	maxFuture time.Duration
	maxPast   time.Duration
}

func NewWallet() *Wallet {
	return &Wallet{maxFuture: 30 * time.Second, maxPast: 5 * time.Minute}
}

var timestampPattern = regexp.MustCompile(`Timestamp: (\d+)`)

// Verify checks the signature and the challenge freshness and emits the
// wallet identity. The wallet address doubles as the provider ID.
func (v *Wallet) Verify(ctx context.Context, proof WalletProof) (models.VerifiedIdentity, error) {
	payload := []byte(proof.Message)
	if proof.TxMessage != "" {
		decoded, err := base58.Decode(proof.TxMessage)
		if err != nil {
			return models.VerifiedIdentity{}, dErrors.Wrap(err, dErrors.CodeInvalidProof, "tx message is not valid base58")
		}
		payload = decoded
	}

	if err := crypto.VerifyEd25519(proof.Address, proof.Signature, payload); err != nil {
		return models.VerifiedIdentity{}, err
	}

	match := timestampPattern.FindStringSubmatch(proof.Message)
	if match == nil {
		return models.VerifiedIdentity{}, dErrors.New(dErrors.CodeInvalidProof, "challenge is missing its timestamp token")
	}
	millis, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return models.VerifiedIdentity{}, dErrors.Wrap(err, dErrors.CodeInvalidProof, "challenge timestamp is not numeric")
	}

	issued := time.UnixMilli(millis)
	now := requestcontext.Now(ctx)
	if issued.After(now.Add(v.maxFuture)) {
		return models.VerifiedIdentity{}, dErrors.New(dErrors.CodeExpiredProof, "challenge timestamp is too far in the future")
	}
	if now.Sub(issued) > v.maxPast {
		return models.VerifiedIdentity{}, dErrors.New(dErrors.CodeExpiredProof, "challenge timestamp is older than five minutes")
	}

	return models.VerifiedIdentity{
		ProviderKind: id.ProviderWallet,
		ProviderID:   proof.Address,
	}, nil
}
