package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

func TestCacheAdminService(t *testing.T) {
	cache := &fakeCache{saved: []domain.CacheEntry{{ID: 1, Query: "q"}}}
	svc := NewCacheAdminService(cache)
	ctx := context.Background()

	entries, err := svc.List(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, svc.Delete(ctx, 1))
	require.NoError(t, svc.PurgeAll(ctx))

	require.NoError(t, svc.Feedback(ctx, "q", "hash", domain.FeedbackDown))
	assert.Equal(t, []string{"q/hash/down"}, cache.feedback)
}
