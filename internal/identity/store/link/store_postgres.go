package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

// PostgresStore persists identity links. The PRIMARY KEY on
// (provider_kind, provider_id) is the authoritative guard that one external
// identity maps to exactly one account.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const linkColumns = `provider_kind, provider_id, account_id, display_name, handle, premium, created_at, updated_at`

func scanLink(row pgx.Row) (models.IdentityLink, error) {
	var l models.IdentityLink
	var kind string
	var rawAccount uuid.UUID
	err := row.Scan(&kind, &l.ProviderID, &rawAccount, &l.DisplayName, &l.Handle, &l.Premium, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return models.IdentityLink{}, err
	}
	l.ProviderKind = id.ProviderKind(kind)
	l.AccountID = id.AccountID(rawAccount)
	return l, nil
}

func (s *PostgresStore) Find(ctx context.Context, kind id.ProviderKind, providerID string) (models.IdentityLink, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM identity_links WHERE provider_kind = $1 AND provider_id = $2`,
		string(kind), providerID,
	)
	l, err := scanLink(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.IdentityLink{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.IdentityLink{}, fmt.Errorf("find identity link: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, link models.IdentityLink) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO identity_links (`+linkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_kind, provider_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			handle       = EXCLUDED.handle,
			premium      = EXCLUDED.premium,
			updated_at   = EXCLUDED.updated_at`,
		string(link.ProviderKind), link.ProviderID, uuid.UUID(link.AccountID),
		link.DisplayName, link.Handle, link.Premium, link.CreatedAt, link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert identity link: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.IdentityLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+linkColumns+` FROM identity_links WHERE account_id = $1`,
		uuid.UUID(accountID),
	)
	if err != nil {
		return nil, fmt.Errorf("list identity links: %w", err)
	}
	defer rows.Close()

	var out []models.IdentityLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindSocialByHandle(ctx context.Context, handle string) (models.IdentityLink, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM identity_links WHERE provider_kind = $1 AND handle = $2`,
		string(id.ProviderSocial), handle,
	)
	l, err := scanLink(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.IdentityLink{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.IdentityLink{}, fmt.Errorf("find social link by handle: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) ReassignAccount(ctx context.Context, from, to id.AccountID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE identity_links SET account_id = $2, updated_at = now() WHERE account_id = $1`,
		uuid.UUID(from), uuid.UUID(to),
	)
	if err != nil {
		return fmt.Errorf("reassign identity links: %w", err)
	}
	return nil
}
