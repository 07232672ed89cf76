package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

// PostgresStore persists accounts in the external auth table. A UNIQUE index
// on handle is the authoritative backstop for deterministic placeholder
// handles.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, account models.Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, handle, created_at) VALUES ($1, $2, $3)`,
		uuid.UUID(account.ID), account.Handle, account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID id.AccountID) (models.Account, error) {
	var account models.Account
	var rawID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id, handle, created_at FROM accounts WHERE id = $1`,
		uuid.UUID(accountID),
	).Scan(&rawID, &account.Handle, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("find account: %w", err)
	}
	account.ID = id.AccountID(rawID)
	return account, nil
}

func (s *PostgresStore) List(ctx context.Context, offset, limit int) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, handle, created_at FROM accounts ORDER BY handle OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		var account models.Account
		var rawID uuid.UUID
		if err := rows.Scan(&rawID, &account.Handle, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		account.ID = id.AccountID(rawID)
		out = append(out, account)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, accountID id.AccountID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, uuid.UUID(accountID)); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
