package merge_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustgate/internal/identity/models"
	"trustgate/internal/identity/store/account"
	"trustgate/internal/identity/store/artifact"
	"trustgate/internal/identity/store/link"
	"trustgate/internal/identity/store/profile"
	"trustgate/internal/merge"
	"trustgate/internal/merge/store/record"
	"trustgate/internal/trust"
	"trustgate/internal/trust/store/signal"
	dErrors "trustgate/pkg/domain-errors"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

type fixture struct {
	engine    *merge.Engine
	accounts  *account.MemoryStore
	links     *link.MemoryStore
	profiles  *profile.MemoryStore
	artifacts *artifact.MemoryStore
	records   *record.MemoryStore
	signals   *signal.MemoryStore
	trust     *trust.Engine
}

func newFixture(t *testing.T, opts ...merge.Option) *fixture {
	t.Helper()
	f := &fixture{
		accounts:  account.NewMemory(),
		links:     link.NewMemory(),
		profiles:  profile.NewMemory(),
		artifacts: artifact.NewMemory(),
		records:   record.NewMemory(),
		signals:   signal.NewMemory(),
	}
	f.trust = trust.NewEngine(f.signals, trust.DefaultCaps())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.engine = merge.NewEngine(f.accounts, f.links, f.profiles, f.artifacts, f.records, f.trust, logger, opts...)
	return f
}

func (f *fixture) seedAccount(t *testing.T, handle string) id.AccountID {
	t.Helper()
	accountID := id.NewAccountID()
	require.NoError(t, f.accounts.Create(context.Background(), models.Account{
		ID:        accountID,
		Handle:    handle,
		CreatedAt: time.Now(),
	}))
	return accountID
}

func TestMergeMovesEverythingAndDeletesSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	source := f.seedAccount(t, "tg:42@placeholder.local")
	target := f.seedAccount(t, "alice@example.com")

	require.NoError(t, f.records.Insert(ctx, "trips", source, "trip-1"))
	require.NoError(t, f.records.Insert(ctx, "trips", source, "trip-2"))
	require.NoError(t, f.records.Insert(ctx, "events", source, "event-1"))
	require.NoError(t, f.links.Upsert(ctx, models.IdentityLink{
		ProviderKind: id.ProviderMessaging,
		ProviderID:   "42",
		AccountID:    source,
	}))
	require.NoError(t, f.artifacts.SaveBotState(ctx, source, "awaiting_link"))
	require.NoError(t, f.signals.Save(ctx, trust.Signals{AccountID: source, HandshakeCount: 3}))

	require.NoError(t, f.engine.Merge(ctx, source, target))

	keys, err := f.records.ListKeys(ctx, "trips", target)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"trip-1", "trip-2"}, keys)

	orphaned, err := f.records.ListKeys(ctx, "trips", source)
	require.NoError(t, err)
	assert.Empty(t, orphaned)

	sourceLinks, err := f.links.ListByAccount(ctx, source)
	require.NoError(t, err)
	assert.Empty(t, sourceLinks)
	targetLinks, err := f.links.ListByAccount(ctx, target)
	require.NoError(t, err)
	require.Len(t, targetLinks, 1)
	assert.Equal(t, "42", targetLinks[0].ProviderID)

	_, err = f.artifacts.BotState(ctx, source)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = f.accounts.FindByID(ctx, source)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	moved, err := f.signals.Get(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 3, moved.HandshakeCount)
	_, err = f.signals.Get(ctx, source)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// Rerunning with the same pair is a no-op, not an error.
	require.NoError(t, f.engine.Merge(ctx, source, target))
	keys, err = f.records.ListKeys(ctx, "trips", target)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestMergeKeyedCollisions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	source := f.seedAccount(t, "wallet:abc@placeholder.local")
	target := f.seedAccount(t, "bob@example.com")

	require.NoError(t, f.records.Insert(ctx, "tags", source, "vip"))
	require.NoError(t, f.records.Insert(ctx, "tags", source, "ops"))
	require.NoError(t, f.records.Insert(ctx, "tags", target, "vip"))
	require.NoError(t, f.records.Insert(ctx, "point_ledger", source, "evt-100"))
	require.NoError(t, f.records.Insert(ctx, "point_ledger", target, "evt-100"))

	require.NoError(t, f.engine.Merge(ctx, source, target))

	tags, err := f.records.ListKeys(ctx, "tags", target)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vip", "ops"}, tags)

	ledger, err := f.records.ListKeys(ctx, "point_ledger", target)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-100"}, ledger)
}

func TestMergeFoldsSignalsAndFillsProfileBlanks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	source := f.seedAccount(t, "tg:7@placeholder.local")
	target := f.seedAccount(t, "carol@example.com")

	firstSeen := time.Now().Add(-48 * time.Hour)
	require.NoError(t, f.signals.Save(ctx, trust.Signals{
		AccountID:       target,
		WalletAddress:   "So1WalletTarget",
		WalletConnected: true,
		HandshakeCount:  2,
	}))
	require.NoError(t, f.signals.Save(ctx, trust.Signals{
		AccountID:       source,
		WalletAddress:   "So1WalletSource",
		WalletConnected: true,
		WalletVerified:  true,
		WalletFirstSeen: &firstSeen,
		HandshakeCount:  5,
		EventCount:      4,
	}))
	require.NoError(t, f.profiles.Save(ctx, models.Profile{
		AccountID: target,
		Company:   "Acme",
	}))
	require.NoError(t, f.profiles.Save(ctx, models.Profile{
		AccountID: source,
		FirstName: "Carol",
		Company:   "Placeholder Inc",
	}))

	require.NoError(t, f.engine.Merge(ctx, source, target))

	merged, err := f.signals.Get(ctx, target)
	require.NoError(t, err)
	assert.True(t, merged.WalletConnected)
	assert.True(t, merged.WalletVerified)
	assert.Equal(t, "So1WalletTarget", merged.WalletAddress)
	assert.Equal(t, 5, merged.HandshakeCount)
	assert.Equal(t, 4, merged.EventCount)
	require.NotNil(t, merged.WalletFirstSeen)
	assert.True(t, merged.WalletFirstSeen.Equal(firstSeen))
	assert.Greater(t, merged.Composite, 0)

	p, err := f.profiles.Get(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, "Carol", p.FirstName)
	assert.Equal(t, "Acme", p.Company)
	_, err = f.profiles.Get(ctx, source)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMergeSubscriptionPrefersTarget(t *testing.T) {
	ctx := context.Background()

	t.Run("target keeps its own plan", func(t *testing.T) {
		f := newFixture(t)
		source := f.seedAccount(t, "tg:8@placeholder.local")
		target := f.seedAccount(t, "dave@example.com")
		require.NoError(t, f.records.Insert(ctx, "subscription", source, "free"))
		require.NoError(t, f.records.Insert(ctx, "subscription", target, "pro"))

		require.NoError(t, f.engine.Merge(ctx, source, target))

		plans, err := f.records.ListKeys(ctx, "subscription", target)
		require.NoError(t, err)
		assert.Equal(t, []string{"pro"}, plans)
		orphaned, err := f.records.ListKeys(ctx, "subscription", source)
		require.NoError(t, err)
		assert.Empty(t, orphaned)
	})

	t.Run("source plan moves when target has none", func(t *testing.T) {
		f := newFixture(t)
		source := f.seedAccount(t, "tg:9@placeholder.local")
		target := f.seedAccount(t, "erin@example.com")
		require.NoError(t, f.records.Insert(ctx, "subscription", source, "pro"))

		require.NoError(t, f.engine.Merge(ctx, source, target))

		plans, err := f.records.ListKeys(ctx, "subscription", target)
		require.NoError(t, err)
		assert.Equal(t, []string{"pro"}, plans)
	})
}

func TestMergeValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	accountID := f.seedAccount(t, "frank@example.com")

	err := f.engine.Merge(ctx, accountID, accountID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	err = f.engine.Merge(ctx, accountID, id.NewAccountID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

// flakyRecords fails the first ReassignOwner call for one entity, then
// behaves normally.
type flakyRecords struct {
	*record.MemoryStore
	failEntity string
	failed     bool
}

func (s *flakyRecords) ReassignOwner(ctx context.Context, entity string, from, to id.AccountID) error {
	if entity == s.failEntity && !s.failed {
		s.failed = true
		return errors.New("connection reset")
	}
	return s.MemoryStore.ReassignOwner(ctx, entity, from, to)
}

func TestMergeStepFailureResumes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	flaky := &flakyRecords{MemoryStore: f.records, failEntity: "contacts"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := merge.NewEngine(f.accounts, f.links, f.profiles, f.artifacts, flaky, f.trust, logger)

	source := f.seedAccount(t, "tg:10@placeholder.local")
	target := f.seedAccount(t, "grace@example.com")
	require.NoError(t, f.records.Insert(ctx, "trips", source, "trip-1"))
	require.NoError(t, f.records.Insert(ctx, "contacts", source, "contact-1"))

	err := engine.Merge(ctx, source, target)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePartialMerge))

	// Steps before the failure already applied; source still exists.
	trips, listErr := f.records.ListKeys(ctx, "trips", target)
	require.NoError(t, listErr)
	assert.Equal(t, []string{"trip-1"}, trips)
	_, findErr := f.accounts.FindByID(ctx, source)
	require.NoError(t, findErr)

	// The retry picks up where the first attempt stopped.
	require.NoError(t, engine.Merge(ctx, source, target))
	contacts, listErr := f.records.ListKeys(ctx, "contacts", target)
	require.NoError(t, listErr)
	assert.Equal(t, []string{"contact-1"}, contacts)
	_, findErr = f.accounts.FindByID(ctx, source)
	assert.ErrorIs(t, findErr, sentinel.ErrNotFound)
}
