//go:build integration

package link_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgate/internal/identity/models"
	"trustgate/internal/identity/store/link"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
	"trustgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *link.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.pg = mgr.GetPostgres(s.T())
	s.pg.Exec(s.T(), `
		CREATE TABLE IF NOT EXISTS identity_links (
			provider_kind text NOT NULL,
			provider_id   text NOT NULL,
			account_id    uuid NOT NULL,
			display_name  text NOT NULL DEFAULT '',
			handle        text NOT NULL DEFAULT '',
			premium       boolean NOT NULL DEFAULT false,
			created_at    timestamptz NOT NULL,
			updated_at    timestamptz NOT NULL,
			PRIMARY KEY (provider_kind, provider_id)
		)`)
	s.store = link.NewPostgres(s.pg.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.pg.Exec(s.T(), `TRUNCATE identity_links`)
}

func makeLink(kind id.ProviderKind, providerID string, owner id.AccountID) models.IdentityLink {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.IdentityLink{
		ProviderKind: kind,
		ProviderID:   providerID,
		AccountID:    owner,
		DisplayName:  "Sam",
		Handle:       "samh",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresStoreSuite) TestUpsertRefreshesMetadataNotOwner() {
	ctx := context.Background()
	owner := id.NewAccountID()
	intruder := id.NewAccountID()

	s.Require().NoError(s.store.Upsert(ctx, makeLink(id.ProviderWallet, "addr-1", owner)))

	updated := makeLink(id.ProviderWallet, "addr-1", intruder)
	updated.Handle = "renamed"
	updated.Premium = true
	s.Require().NoError(s.store.Upsert(ctx, updated))

	got, err := s.store.Find(ctx, id.ProviderWallet, "addr-1")
	s.Require().NoError(err)
	s.Equal(owner, got.AccountID)
	s.Equal("renamed", got.Handle)
	s.True(got.Premium)
}

func (s *PostgresStoreSuite) TestFindNotFound() {
	_, err := s.store.Find(context.Background(), id.ProviderSocial, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestReassignAccountMovesAllLinks() {
	ctx := context.Background()
	from := id.NewAccountID()
	to := id.NewAccountID()
	s.Require().NoError(s.store.Upsert(ctx, makeLink(id.ProviderMessaging, "1", from)))
	s.Require().NoError(s.store.Upsert(ctx, makeLink(id.ProviderSocial, "777", from)))
	s.Require().NoError(s.store.Upsert(ctx, makeLink(id.ProviderWallet, "addr-9", to)))

	s.Require().NoError(s.store.ReassignAccount(ctx, from, to))

	moved, err := s.store.ListByAccount(ctx, to)
	s.Require().NoError(err)
	s.Len(moved, 3)
	left, err := s.store.ListByAccount(ctx, from)
	s.Require().NoError(err)
	s.Empty(left)
}

func (s *PostgresStoreSuite) TestFindSocialByHandle() {
	ctx := context.Background()
	owner := id.NewAccountID()
	l := makeLink(id.ProviderSocial, "777", owner)
	l.Handle = "legacy"
	s.Require().NoError(s.store.Upsert(ctx, l))

	got, err := s.store.FindSocialByHandle(ctx, "legacy")
	s.Require().NoError(err)
	s.Equal(owner, got.AccountID)
}
