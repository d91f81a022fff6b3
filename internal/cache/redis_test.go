package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/npezzotti/go-teamchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstMessageKey(t *testing.T) {
	day := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "first-message:channel:c1:2024-03-09", firstMessageKey(types.ChannelTarget("c1"), day))
	assert.Equal(t, "first-message:conversation:v1:2024-03-09", firstMessageKey(types.ConversationTarget("v1"), day))
}

func TestUntilEndOfDay(t *testing.T) {
	tcases := []struct {
		name string
		at   time.Time
		want time.Duration
	}{
		{
			name: "midnight",
			at:   time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			want: 24 * time.Hour,
		},
		{
			name: "late evening",
			at:   time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC),
			want: time.Hour,
		},
		{
			name: "non utc zone",
			at:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.FixedZone("CET", 3600)),
			want: time.Hour,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, untilEndOfDay(tc.at))
		})
	}
}

func TestNop(t *testing.T) {
	var m FirstMessageMarker = Nop{}
	for range 2 {
		ok, err := m.MarkFirstMessage(context.Background(), types.ChannelTarget("c1"), time.Now())
		assert.NoError(t, err)
		assert.True(t, ok)
	}
	assert.NoError(t, m.ReleaseFirstMessage(context.Background(), types.ChannelTarget("c1"), time.Now()))
}

func TestRedisMarkFirstMessage(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	r, err := Connect(ctx, addr)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	target := types.ChannelTarget("test-" + time.Now().Format(time.RFC3339Nano))
	now := time.Now()

	first, err := r.MarkFirstMessage(ctx, target, now)
	require.NoError(t, err)
	assert.True(t, first, "expected first mark to create the key")

	second, err := r.MarkFirstMessage(ctx, target, now)
	require.NoError(t, err)
	assert.False(t, second, "expected second mark on the same day to be a no-op")

	ttl, err := r.cli.TTL(ctx, firstMessageKey(target, now)).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 24*time.Hour)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, r.ReleaseFirstMessage(ctx, target, now))
	again, err := r.MarkFirstMessage(ctx, target, now)
	require.NoError(t, err)
	assert.True(t, again, "expected a released marker to be claimable again")
}
