package profile

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

// PostgresStore persists profiles keyed by account id.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, accountID id.AccountID) (models.Profile, error) {
	var p models.Profile
	var rawID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT account_id, first_name, last_name, company, bio, website, updated_at
		FROM profiles WHERE account_id = $1`, uuid.UUID(accountID),
	).Scan(&rawID, &p.FirstName, &p.LastName, &p.Company, &p.Bio, &p.Website, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Profile{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.AccountID = id.AccountID(rawID)
	return p, nil
}

func (s *PostgresStore) Save(ctx context.Context, profile models.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (account_id, first_name, last_name, company, bio, website, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name  = EXCLUDED.last_name,
			company    = EXCLUDED.company,
			bio        = EXCLUDED.bio,
			website    = EXCLUDED.website,
			updated_at = EXCLUDED.updated_at`,
		uuid.UUID(profile.AccountID), profile.FirstName, profile.LastName,
		profile.Company, profile.Bio, profile.Website, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, accountID id.AccountID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE account_id = $1`, uuid.UUID(accountID)); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
