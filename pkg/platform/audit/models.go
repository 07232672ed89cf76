// Package audit defines the audit event model and the publisher components
// used to record identity mutations (account created, proof linked, merge
// completed). Every write that changes who owns what emits an event.
package audit

import (
	"context"
	"time"

	id "trustgate/pkg/domain"
)

// Action names a recorded identity mutation.
type Action string

const (
	EventAccountCreated     Action = "account.created"
	EventIdentityLinked     Action = "identity.linked"
	EventLinkConflict       Action = "identity.link_conflict"
	EventMergeStarted       Action = "merge.started"
	EventMergeCompleted     Action = "merge.completed"
	EventMergeStepFailed    Action = "merge.step_failed"
	EventSocialDisconnected Action = "social.disconnected"
	EventTrustRecomputed    Action = "trust.recomputed"
)

// Event is one audit record. Metadata carries small string facts (provider
// kind, step name); never raw proofs or secrets.
type Event struct {
	ID         string            `json:"id"`
	AccountID  id.AccountID      `json:"account_id"`
	Action     Action            `json:"action"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Store persists audit events. Implementations: in-memory (tests, dev) and
// kafka-backed via the publisher package.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]Event, error)
}
