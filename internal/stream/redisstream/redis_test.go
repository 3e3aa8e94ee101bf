package redisstream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Mosaic/internal/stream"
)

func newTestBroker(t *testing.T, visibility time.Duration) *Broker {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	b := NewWithClient(client, visibility, nil)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBroker_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	b := newTestBroker(t, time.Minute)

	id1, err := b.Append(ctx, "mandelbrot:results", map[string]string{"color_r": "10"})
	require.NoError(t, err)
	id2, err := b.Append(ctx, "mandelbrot:results", map[string]string{"color_r": "20"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	entries, err := b.Read(ctx, "mandelbrot:results", stream.Start, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, id1, entries[0].ID)
	assert.Equal(t, "10", entries[0].Fields["color_r"])

	entries, err = b.Read(ctx, "mandelbrot:results", id1, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "20", entries[0].Fields["color_r"])
}

func TestBroker_ReadEmptyTimesOut(t *testing.T) {
	b := newTestBroker(t, time.Minute)

	entries, err := b.Read(context.Background(), "missing", stream.Start, 10, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBroker_GroupLifecycle(t *testing.T) {
	ctx := context.Background()
	b := newTestBroker(t, time.Minute)

	require.NoError(t, b.CreateGroup(ctx, "mandelbrot:work", "workers"))
	require.NoError(t, b.CreateGroup(ctx, "mandelbrot:work", "workers"), "BUSYGROUP must be ignored")

	id, err := b.Append(ctx, "mandelbrot:work", map[string]string{"quarter": "top_left"})
	require.NoError(t, err)

	got, err := b.ReadGroup(ctx, "mandelbrot:work", "workers", "worker-a", 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "top_left", got[0].Fields["quarter"])

	none, err := b.ReadGroup(ctx, "mandelbrot:work", "workers", "worker-b", 1, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, b.Ack(ctx, "mandelbrot:work", "workers", id))
	require.NoError(t, b.Ack(ctx, "mandelbrot:work", "workers", id))
}

func TestBroker_ClaimsIdlePending(t *testing.T) {
	ctx := context.Background()
	b := newTestBroker(t, 5*time.Millisecond)

	require.NoError(t, b.CreateGroup(ctx, "mandelbrot:work", "workers"))
	id, err := b.Append(ctx, "mandelbrot:work", map[string]string{"k": "v"})
	require.NoError(t, err)

	first, err := b.ReadGroup(ctx, "mandelbrot:work", "workers", "worker-a", 1, 0)
	require.NoError(t, err)
	require.Len(t, first, 1)

	time.Sleep(30 * time.Millisecond)

	again, err := b.ReadGroup(ctx, "mandelbrot:work", "workers", "worker-b", 1, 0)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, id, again[0].ID)
}

func TestBroker_ReadGroupWithoutGroup(t *testing.T) {
	b := newTestBroker(t, time.Minute)

	_, err := b.Append(context.Background(), "mandelbrot:work", map[string]string{"k": "v"})
	require.NoError(t, err)

	_, err = b.ReadGroup(context.Background(), "mandelbrot:work", "workers", "worker-a", 1, 0)
	assert.ErrorIs(t, err, stream.ErrNoGroup)
}

func TestBroker_DeleteAndInfo(t *testing.T) {
	ctx := context.Background()
	b := newTestBroker(t, time.Minute)

	info, err := b.Info(ctx, "mandelbrot:work")
	require.NoError(t, err)
	assert.False(t, info.Exists)

	_, err = b.Append(ctx, "mandelbrot:work", map[string]string{"k": "v"})
	require.NoError(t, err)

	info, err = b.Info(ctx, "mandelbrot:work")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, int64(1), info.Length)

	require.NoError(t, b.Delete(ctx, "mandelbrot:work", "mandelbrot:results"))

	info, err = b.Info(ctx, "mandelbrot:work")
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestBlockArg(t *testing.T) {
	assert.Equal(t, time.Duration(-1), blockArg(0))
	assert.Equal(t, time.Duration(-1), blockArg(-time.Second))
	assert.Equal(t, time.Millisecond, blockArg(time.Microsecond))
	assert.Equal(t, 5*time.Second, blockArg(5*time.Second))
}
