package signal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trustgate/internal/trust"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

// PostgresStore persists trust signals. Partial UNIQUE indexes on
// (wallet_address) WHERE wallet_verified and (social_provider_id) WHERE
// social_verified are the authoritative backstop keeping a verified wallet
// and a verified social identity exclusive to one account; the uniqueness
// guard's pre-check is a fast-fail UX optimization on top.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const signalColumns = `account_id, wallet_address, wallet_connected, wallet_verified, wallet_first_seen,
	social_provider_id, social_handle, social_verified, social_premium, social_first_seen,
	handshake_count, event_count, community_count, first_handshake_at,
	composite, cat_handshakes, cat_wallet, cat_social, cat_events, cat_community, updated_at`

func scanSignals(row pgx.Row) (trust.Signals, error) {
	var s trust.Signals
	var rawID uuid.UUID
	err := row.Scan(&rawID, &s.WalletAddress, &s.WalletConnected, &s.WalletVerified, &s.WalletFirstSeen,
		&s.SocialProviderID, &s.SocialHandle, &s.SocialVerified, &s.SocialPremium, &s.SocialFirstSeen,
		&s.HandshakeCount, &s.EventCount, &s.CommunityCount, &s.FirstHandshakeAt,
		&s.Composite, &s.Categories.Handshakes, &s.Categories.Wallet, &s.Categories.Social,
		&s.Categories.Events, &s.Categories.Community, &s.UpdatedAt)
	if err != nil {
		return trust.Signals{}, err
	}
	s.AccountID = id.AccountID(rawID)
	return s, nil
}

func (s *PostgresStore) Get(ctx context.Context, accountID id.AccountID) (trust.Signals, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM trust_signals WHERE account_id = $1`, uuid.UUID(accountID))
	signals, err := scanSignals(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return trust.Signals{}, sentinel.ErrNotFound
	}
	if err != nil {
		return trust.Signals{}, fmt.Errorf("get trust signals: %w", err)
	}
	return signals, nil
}

func (s *PostgresStore) Save(ctx context.Context, signals trust.Signals) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trust_signals (`+signalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (account_id) DO UPDATE SET
			wallet_address     = EXCLUDED.wallet_address,
			wallet_connected   = EXCLUDED.wallet_connected,
			wallet_verified    = EXCLUDED.wallet_verified,
			wallet_first_seen  = EXCLUDED.wallet_first_seen,
			social_provider_id = EXCLUDED.social_provider_id,
			social_handle      = EXCLUDED.social_handle,
			social_verified    = EXCLUDED.social_verified,
			social_premium     = EXCLUDED.social_premium,
			social_first_seen  = EXCLUDED.social_first_seen,
			handshake_count    = EXCLUDED.handshake_count,
			event_count        = EXCLUDED.event_count,
			community_count    = EXCLUDED.community_count,
			first_handshake_at = EXCLUDED.first_handshake_at,
			composite          = EXCLUDED.composite,
			cat_handshakes     = EXCLUDED.cat_handshakes,
			cat_wallet         = EXCLUDED.cat_wallet,
			cat_social         = EXCLUDED.cat_social,
			cat_events         = EXCLUDED.cat_events,
			cat_community      = EXCLUDED.cat_community,
			updated_at         = EXCLUDED.updated_at`,
		uuid.UUID(signals.AccountID), signals.WalletAddress, signals.WalletConnected, signals.WalletVerified, signals.WalletFirstSeen,
		signals.SocialProviderID, signals.SocialHandle, signals.SocialVerified, signals.SocialPremium, signals.SocialFirstSeen,
		signals.HandshakeCount, signals.EventCount, signals.CommunityCount, signals.FirstHandshakeAt,
		signals.Composite, signals.Categories.Handshakes, signals.Categories.Wallet, signals.Categories.Social,
		signals.Categories.Events, signals.Categories.Community, signals.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save trust signals: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, accountID id.AccountID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM trust_signals WHERE account_id = $1`, uuid.UUID(accountID)); err != nil {
		return fmt.Errorf("delete trust signals: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindVerifiedWallet(ctx context.Context, address string) (trust.Signals, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM trust_signals WHERE wallet_verified AND wallet_address = $1`, address)
	signals, err := scanSignals(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return trust.Signals{}, sentinel.ErrNotFound
	}
	if err != nil {
		return trust.Signals{}, fmt.Errorf("find verified wallet: %w", err)
	}
	return signals, nil
}

func (s *PostgresStore) FindVerifiedSocial(ctx context.Context, providerID, handle string) (trust.Signals, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+signalColumns+` FROM trust_signals
		WHERE social_verified
		  AND (($1 <> '' AND social_provider_id = $1) OR ($2 <> '' AND social_handle = $2))
		LIMIT 1`, providerID, handle)
	signals, err := scanSignals(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return trust.Signals{}, sentinel.ErrNotFound
	}
	if err != nil {
		return trust.Signals{}, fmt.Errorf("find verified social: %w", err)
	}
	return signals, nil
}
