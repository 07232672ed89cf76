package record

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	id "trustgate/pkg/domain"
)

// TableSpec maps an entity name onto its table and columns. Entity names
// come from a fixed declaration table, never from request input, but the
// explicit registry keeps identifiers out of SQL string building anyway.
type TableSpec struct {
	Table    string
	OwnerCol string
	KeyCol   string
}

// DefaultTables maps the default entity declarations onto their tables.
func DefaultTables() map[string]TableSpec {
	return map[string]TableSpec{
		"trips":         {Table: "trips", OwnerCol: "account_id", KeyCol: "id"},
		"events":        {Table: "events", OwnerCol: "account_id", KeyCol: "id"},
		"contacts":      {Table: "contacts", OwnerCol: "account_id", KeyCol: "id"},
		"tags":          {Table: "tags", OwnerCol: "account_id", KeyCol: "name"},
		"saved_wallets": {Table: "saved_wallets", OwnerCol: "account_id", KeyCol: "address"},
		"point_ledger":  {Table: "point_ledger", OwnerCol: "account_id", KeyCol: "external_event_id"},
		"subscription":  {Table: "subscriptions", OwnerCol: "account_id", KeyCol: "plan"},
	}
}

// PostgresStore executes the generic record operations against declared
// tables.
type PostgresStore struct {
	pool   *pgxpool.Pool
	tables map[string]TableSpec
}

func NewPostgres(pool *pgxpool.Pool, tables map[string]TableSpec) *PostgresStore {
	return &PostgresStore{pool: pool, tables: tables}
}

func (s *PostgresStore) spec(entity string) (TableSpec, error) {
	spec, ok := s.tables[entity]
	if !ok {
		return TableSpec{}, fmt.Errorf("entity %q has no table declaration", entity)
	}
	return spec, nil
}

func (s *PostgresStore) ReassignOwner(ctx context.Context, entity string, from, to id.AccountID) error {
	spec, err := s.spec(entity)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`, spec.Table, spec.OwnerCol, spec.OwnerCol)
	if _, err := s.pool.Exec(ctx, query, uuid.UUID(from), uuid.UUID(to)); err != nil {
		return fmt.Errorf("reassign %s owner: %w", entity, err)
	}
	return nil
}

func (s *PostgresStore) ListKeys(ctx context.Context, entity string, owner id.AccountID) ([]string, error) {
	spec, err := s.spec(entity)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s::text FROM %s WHERE %s = $1`, spec.KeyCol, spec.Table, spec.OwnerCol)
	rows, err := s.pool.Query(ctx, query, uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("list %s keys: %w", entity, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan %s key: %w", entity, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) HasKey(ctx context.Context, entity string, owner id.AccountID, key string) (bool, error) {
	spec, err := s.spec(entity)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1 AND %s::text = $2)`,
		spec.Table, spec.OwnerCol, spec.KeyCol)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, uuid.UUID(owner), key).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s key: %w", entity, err)
	}
	return exists, nil
}

func (s *PostgresStore) ReassignKey(ctx context.Context, entity string, from id.AccountID, key string, to id.AccountID) error {
	spec, err := s.spec(entity)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = $3 WHERE %s = $1 AND %s::text = $2`,
		spec.Table, spec.OwnerCol, spec.OwnerCol, spec.KeyCol)
	if _, err := s.pool.Exec(ctx, query, uuid.UUID(from), key, uuid.UUID(to)); err != nil {
		return fmt.Errorf("reassign %s key: %w", entity, err)
	}
	return nil
}

func (s *PostgresStore) DeleteKey(ctx context.Context, entity string, owner id.AccountID, key string) error {
	spec, err := s.spec(entity)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s::text = $2`,
		spec.Table, spec.OwnerCol, spec.KeyCol)
	if _, err := s.pool.Exec(ctx, query, uuid.UUID(owner), key); err != nil {
		return fmt.Errorf("delete %s key: %w", entity, err)
	}
	return nil
}
