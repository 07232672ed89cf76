package account

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

func TestMemoryCreateConflictsOnHandle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Create(ctx, models.Account{ID: id.NewAccountID(), Handle: "messaging:1@placeholder.local"}))
	err := s.Create(ctx, models.Account{ID: id.NewAccountID(), Handle: "messaging:1@placeholder.local"})
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestMemoryListPaginatesStably(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(ctx, models.Account{
			ID:     id.NewAccountID(),
			Handle: fmt.Sprintf("user-%d@example.com", i),
		}))
	}

	var seen []string
	for offset := 0; ; offset += 2 {
		page, err := s.List(ctx, offset, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, a := range page {
			seen = append(seen, a.Handle)
		}
	}
	assert.Len(t, seen, 5)
	assert.ElementsMatch(t, []string{
		"user-0@example.com", "user-1@example.com", "user-2@example.com",
		"user-3@example.com", "user-4@example.com",
	}, seen)
}

func TestMemoryDeleteFreesHandle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	accountID := id.NewAccountID()
	require.NoError(t, s.Create(ctx, models.Account{ID: accountID, Handle: "gone@example.com"}))
	require.NoError(t, s.Delete(ctx, accountID))

	_, err := s.FindByID(ctx, accountID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, s.Create(ctx, models.Account{ID: id.NewAccountID(), Handle: "gone@example.com"}))
}
