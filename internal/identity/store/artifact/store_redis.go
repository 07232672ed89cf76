package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

// RedisStore keeps artifacts in Redis with TTLs. Link codes are tracked in a
// per-account set so PurgeAccount can remove codes issued to a placeholder
// without scanning the keyspace.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func linkCodeKey(code string) string            { return "linkcode:" + code }
func botStateKey(accountID id.AccountID) string { return "botstate:" + accountID.String() }
func accountCodesKey(accountID id.AccountID) string {
	return "account:" + accountID.String() + ":codes"
}

func (s *RedisStore) SaveLinkCode(ctx context.Context, code string, accountID id.AccountID, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, linkCodeKey(code), accountID.String(), ttl)
	pipe.SAdd(ctx, accountCodesKey(accountID), code)
	pipe.Expire(ctx, accountCodesKey(accountID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save link code: %w", err)
	}
	return nil
}

func (s *RedisStore) ConsumeLinkCode(ctx context.Context, code string) (id.AccountID, error) {
	val, err := s.client.GetDel(ctx, linkCodeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return id.AccountID{}, sentinel.ErrNotFound
	}
	if err != nil {
		return id.AccountID{}, fmt.Errorf("consume link code: %w", err)
	}
	accountID, err := id.ParseAccountID(val)
	if err != nil {
		return id.AccountID{}, fmt.Errorf("stored link code holds an invalid account id: %w", err)
	}
	s.client.SRem(ctx, accountCodesKey(accountID), code)
	return accountID, nil
}

func (s *RedisStore) SaveBotState(ctx context.Context, accountID id.AccountID, state string) error {
	if err := s.client.Set(ctx, botStateKey(accountID), state, 0).Err(); err != nil {
		return fmt.Errorf("save bot state: %w", err)
	}
	return nil
}

func (s *RedisStore) BotState(ctx context.Context, accountID id.AccountID) (string, error) {
	val, err := s.client.Get(ctx, botStateKey(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get bot state: %w", err)
	}
	return val, nil
}

func (s *RedisStore) PurgeAccount(ctx context.Context, accountID id.AccountID) error {
	codes, err := s.client.SMembers(ctx, accountCodesKey(accountID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list link codes: %w", err)
	}
	keys := make([]string, 0, len(codes)+2)
	for _, code := range codes {
		keys = append(keys, linkCodeKey(code))
	}
	keys = append(keys, accountCodesKey(accountID), botStateKey(accountID))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("purge account artifacts: %w", err)
	}
	return nil
}
