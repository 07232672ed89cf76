//go:build integration

package artifact_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgate/internal/identity/store/artifact"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
	"trustgate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *artifact.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = artifact.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestLinkCodeSingleUse() {
	ctx := context.Background()
	owner := id.NewAccountID()
	s.Require().NoError(s.store.SaveLinkCode(ctx, "code-1", owner, time.Minute))

	got, err := s.store.ConsumeLinkCode(ctx, "code-1")
	s.Require().NoError(err)
	s.Equal(owner, got)

	// GETDEL removed the key: a second consume finds nothing.
	_, err = s.store.ConsumeLinkCode(ctx, "code-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestLinkCodeExpires() {
	ctx := context.Background()
	owner := id.NewAccountID()
	s.Require().NoError(s.store.SaveLinkCode(ctx, "code-ttl", owner, 50*time.Millisecond))

	time.Sleep(120 * time.Millisecond)
	_, err := s.store.ConsumeLinkCode(ctx, "code-ttl")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestPurgeAccountRemovesOnlyItsArtifacts() {
	ctx := context.Background()
	owner := id.NewAccountID()
	other := id.NewAccountID()
	s.Require().NoError(s.store.SaveLinkCode(ctx, "code-a", owner, time.Minute))
	s.Require().NoError(s.store.SaveLinkCode(ctx, "code-b", other, time.Minute))
	s.Require().NoError(s.store.SaveBotState(ctx, owner, "awaiting_wallet"))

	s.Require().NoError(s.store.PurgeAccount(ctx, owner))

	_, err := s.store.ConsumeLinkCode(ctx, "code-a")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.BotState(ctx, owner)
	s.ErrorIs(err, sentinel.ErrNotFound)

	got, err := s.store.ConsumeLinkCode(ctx, "code-b")
	s.Require().NoError(err)
	s.Equal(other, got)
}

func (s *RedisStoreSuite) TestBotStateRoundTrip() {
	ctx := context.Background()
	owner := id.NewAccountID()
	s.Require().NoError(s.store.SaveBotState(ctx, owner, "awaiting_social"))
	state, err := s.store.BotState(ctx, owner)
	s.Require().NoError(err)
	s.Equal("awaiting_social", state)
}
