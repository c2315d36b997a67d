package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwner = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestStore_UpsertAndGet(t *testing.T) {
	store, err := NewStore(setupTestRedis(t), "test:")
	require.NoError(t, err)
	ctx := context.Background()

	saved, err := store.Upsert(ctx, &Preferences{
		Owner:         testOwner,
		SlippageMode:  SlippageFixed,
		SlippageBps:   75,
		DynamicMaxBps: 300,
	})
	require.NoError(t, err)
	assert.NotZero(t, saved.UpdatedAt)

	got, err := store.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, SlippageFixed, got.SlippageMode)
	assert.Equal(t, uint16(75), got.SlippageBps)
	assert.Equal(t, saved.UpdatedAt, got.UpdatedAt)
}

func TestStore_GetOrDefaults(t *testing.T) {
	store, err := NewStore(setupTestRedis(t), "test:")
	require.NoError(t, err)
	ctx := context.Background()

	p, err := store.GetOrDefaults(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, SlippageDynamic, p.SlippageMode)
	assert.Equal(t, uint16(50), p.SlippageBps)
	assert.Equal(t, uint16(300), p.DynamicMaxBps)
	assert.Zero(t, p.UpdatedAt)
}

func TestStore_Delete(t *testing.T) {
	store, err := NewStore(setupTestRedis(t), "test:")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Upsert(ctx, Defaults(testOwner))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, testOwner))
	_, err = store.Get(ctx, testOwner)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing entry is not an error.
	assert.NoError(t, store.Delete(ctx, testOwner))
}

func TestStore_Validation(t *testing.T) {
	store, err := NewStore(setupTestRedis(t), "test:")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Upsert(ctx, &Preferences{
		Owner: "not a base58 key", SlippageMode: SlippageFixed,
		SlippageBps: 50, DynamicMaxBps: 300,
	})
	assert.Error(t, err)

	_, err = store.Upsert(ctx, &Preferences{
		Owner: testOwner, SlippageMode: "AUTO",
		SlippageBps: 50, DynamicMaxBps: 300,
	})
	assert.Error(t, err)

	_, err = store.Upsert(ctx, &Preferences{
		Owner: testOwner, SlippageMode: SlippageFixed,
		SlippageBps: 0, DynamicMaxBps: 300,
	})
	assert.Error(t, err)

	_, err = store.Upsert(ctx, &Preferences{
		Owner: testOwner, SlippageMode: SlippageFixed,
		SlippageBps: 50, DynamicMaxBps: 9000,
	})
	assert.Error(t, err)

	_, err = store.Get(ctx, "")
	assert.Error(t, err)
}
