package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymousIsNotAuthenticated(t *testing.T) {
	assert.False(t, Anonymous().Authenticated())
	assert.True(t, Identity{UserID: "user-1"}.Authenticated())
}

func TestStaticLookup(t *testing.T) {
	lookup := NewStaticLookup(
		Account{ID: "alice", DisplayName: "Alice", Status: AccountStatusActive},
	)

	account, err := lookup.AccountByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", account.DisplayName)

	_, err = lookup.AccountByID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
