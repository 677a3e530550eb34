package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/actuallystonmai/site-content/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server when REDIS_TEST_URL is set, e.g.
// redis://localhost:6379/15
func newTestCache(t *testing.T) *Cache {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	client, err := Connect(context.Background(), url)
	require.NoError(t, err)
	c := NewCache(client, time.Minute)
	t.Cleanup(func() {
		_ = c.Invalidate(context.Background())
		_ = c.Close()
	})
	require.NoError(t, c.Invalidate(context.Background()))
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, found, err := c.GetLatest(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	now := time.Now().UTC().Truncate(time.Microsecond)
	snap := &domain.Snapshot{
		ID:        uuid.Must(uuid.NewV7()),
		Content:   domain.Content{PalpitesTitle: "cached"}.Normalize(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, c.SetLatest(ctx, snap))

	got, found, err := c.GetLatest(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, "cached", got.PalpitesTitle)
	assert.NotNil(t, got.HeroSlides)
	assert.True(t, now.Equal(got.UpdatedAt))

	require.NoError(t, c.Invalidate(ctx))
	_, found, err = c.GetLatest(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-redis-url")
	assert.Error(t, err)
}

func TestNewCacheDefaultTTL(t *testing.T) {
	c := NewCache(nil, 0)
	assert.Equal(t, defaultTTL, c.ttl)
}
