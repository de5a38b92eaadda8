package cache_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribelabs/tribe/internal/cache"
	"github.com/tribelabs/tribe/internal/database/types"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (*cache.GroupCache, *miniredis.Miniredis, func()) {
	t.Helper()
	// Start miniredis server
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Create Redis client
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	groupCache := cache.NewGroupCache(client, time.Minute, zap.NewNop())

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return groupCache, mr, cleanup
}

func testGroup() *types.Group {
	return &types.Group{
		ID:               "grp-1",
		ParentID:         "parent-1",
		Name:             "Grandparents",
		DefaultFrequency: types.FrequencyDailyDigest,
		DefaultChannels:  []string{types.ChannelEmail},
		EmailEnabled:     true,
		SmsEnabled:       true,
		WhatsappEnabled:  true,
	}
}

func TestGetMiss(t *testing.T) {
	t.Parallel()

	groupCache, _, cleanup := setupTest(t)
	defer cleanup()

	got, err := groupCache.Get(t.Context(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetAndGet(t *testing.T) {
	t.Parallel()

	groupCache, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()
	group := testGroup()

	require.NoError(t, groupCache.Set(ctx, group))

	got, err := groupCache.Get(ctx, group.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, group.Name, got.Name)
	assert.Equal(t, group.DefaultFrequency, got.DefaultFrequency)
}

func TestExpiry(t *testing.T) {
	t.Parallel()

	groupCache, mr, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()
	require.NoError(t, groupCache.Set(ctx, testGroup()))

	// Advance past the TTL
	mr.FastForward(2 * time.Minute)

	got, err := groupCache.Get(ctx, "grp-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	groupCache, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()
	require.NoError(t, groupCache.Set(ctx, testGroup()))
	require.NoError(t, groupCache.Invalidate(ctx, "grp-1"))

	got, err := groupCache.Get(ctx, "grp-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClear(t *testing.T) {
	t.Parallel()

	groupCache, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := t.Context()

	first := testGroup()
	second := testGroup()
	second.ID = "grp-2"

	require.NoError(t, groupCache.Set(ctx, first))
	require.NoError(t, groupCache.Set(ctx, second))
	require.NoError(t, groupCache.Clear(ctx))

	for _, id := range []string{"grp-1", "grp-2"} {
		got, err := groupCache.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}
