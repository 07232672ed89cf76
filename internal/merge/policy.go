// Package merge implements the account merge saga: a forward-only,
// step-by-step migration of everything a source account owns into a target
// account, ending with deletion of the source.
package merge

import (
	"context"

	id "trustgate/pkg/domain"
)

// Policy selects how one entity type's rows move from source to target.
// Adding a new owned entity means declaring its policy, not new control flow.
type Policy int

const (
	// BulkReassign rewrites the owner column for every row; no uniqueness
	// constraint is involved.
	BulkReassign Policy = iota
	// ReassignOrDrop handles rows unique per (account, naturalKey): a source
	// row whose key the target already holds is deleted, the rest are
	// reassigned.
	ReassignOrDrop
	// ReassignOrDeleteDuplicate handles rows unique per (account,
	// foreignKey) where a collision means the rows are true duplicates of
	// the same external fact, not just a conflicting slot. Operationally it
	// moves rows exactly like ReassignOrDrop.
	ReassignOrDeleteDuplicate
	// MergeTakeBest folds the singleton trust signal rows field by field
	// (booleans OR, first-observed prefer-set, counters max).
	MergeTakeBest
	// FillBlank copies source profile fields into blank target fields and
	// never overwrites a non-blank one.
	FillBlank
	// PreferTargetElseMove keeps the target's exactly-one-of row when both
	// accounts have one, otherwise moves the source's over.
	PreferTargetElseMove
)

func (p Policy) String() string {
	switch p {
	case BulkReassign:
		return "bulk_reassign"
	case ReassignOrDrop:
		return "reassign_or_drop"
	case ReassignOrDeleteDuplicate:
		return "reassign_or_delete_duplicate"
	case MergeTakeBest:
		return "merge_take_best"
	case FillBlank:
		return "fill_blank"
	case PreferTargetElseMove:
		return "prefer_target_else_move"
	}
	return "unknown"
}

// EntitySpec declares one owned entity and the policy that migrates it.
type EntitySpec struct {
	Name   string
	Policy Policy
}

// DefaultEntities lists the owned entities in migration order. The singleton
// policies (MergeTakeBest, FillBlank) are served by their dedicated stores;
// the rest go through the generic record store.
func DefaultEntities() []EntitySpec {
	return []EntitySpec{
		{Name: "trips", Policy: BulkReassign},
		{Name: "events", Policy: BulkReassign},
		{Name: "contacts", Policy: BulkReassign},
		{Name: "tags", Policy: ReassignOrDrop},
		{Name: "saved_wallets", Policy: ReassignOrDrop},
		{Name: "point_ledger", Policy: ReassignOrDeleteDuplicate},
		{Name: "trust_signals", Policy: MergeTakeBest},
		{Name: "profile", Policy: FillBlank},
		{Name: "subscription", Policy: PreferTargetElseMove},
	}
}

// RecordStore is the generic seam over externally-owned domain record
// tables. Rows are addressed by (entity, owner) and, for keyed policies, a
// natural or foreign key string.
type RecordStore interface {
	ReassignOwner(ctx context.Context, entity string, from, to id.AccountID) error
	ListKeys(ctx context.Context, entity string, owner id.AccountID) ([]string, error)
	HasKey(ctx context.Context, entity string, owner id.AccountID, key string) (bool, error)
	ReassignKey(ctx context.Context, entity string, from id.AccountID, key string, to id.AccountID) error
	DeleteKey(ctx context.Context, entity string, owner id.AccountID, key string) error
}
