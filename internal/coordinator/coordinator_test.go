package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Mosaic/internal/domain"
	"github.com/shaiso/Mosaic/internal/stream"
	"github.com/shaiso/Mosaic/internal/telemetry"
)

func newTestCoordinator(t *testing.T, broker stream.Broker, clear bool) *Coordinator {
	t.Helper()

	c, err := New(Config{
		Broker:       broker,
		CanvasWidth:  800,
		CanvasHeight: 600,
		Clear:        clear,
		Logger:       telemetry.Discard(),
	})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{CanvasWidth: 10, CanvasHeight: 10})
	assert.ErrorIs(t, err, ErrNoBroker)

	_, err = New(Config{Broker: stream.NewMemory(stream.MemoryOptions{}), CanvasWidth: 1, CanvasHeight: 10})
	assert.ErrorIs(t, err, domain.ErrCanvasTooSmall)
}

func TestQuadrants(t *testing.T) {
	c := newTestCoordinator(t, stream.NewMemory(stream.MemoryOptions{}), false)

	got := c.Quadrants()
	require.Len(t, got, 4)

	want := []struct {
		quarter string
		tl, br  domain.Point
	}{
		{domain.QuarterTopLeft, domain.Point{X: 0, Y: 0}, domain.Point{X: 400, Y: 300}},
		{domain.QuarterTopRight, domain.Point{X: 400, Y: 0}, domain.Point{X: 800, Y: 300}},
		{domain.QuarterBottomLeft, domain.Point{X: 0, Y: 300}, domain.Point{X: 400, Y: 600}},
		{domain.QuarterBottomRight, domain.Point{X: 400, Y: 300}, domain.Point{X: 800, Y: 600}},
	}
	for i, w := range want {
		assert.Equal(t, w.quarter, got[i].Quarter)
		assert.Equal(t, w.tl, got[i].TopLeft)
		assert.Equal(t, w.br, got[i].BottomRight)
		assert.Equal(t, 800, got[i].CanvasWidth)
		assert.Equal(t, 600, got[i].CanvasHeight)
	}
}

func TestRun_SeedsFourWorkMessages(t *testing.T) {
	ctx := context.Background()
	broker := stream.NewMemory(stream.MemoryOptions{})
	c := newTestCoordinator(t, broker, true)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	report, err := c.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Seeded, 4)

	assert.True(t, report.Work.Exists)
	assert.Equal(t, int64(4), report.Work.Length)
	require.Len(t, report.Work.Groups, 1)
	assert.Equal(t, DefaultGroup, report.Work.Groups[0].Name)
	assert.False(t, report.Results.Exists)

	entries, err := broker.ReadGroup(ctx, DefaultWorkStream, DefaultGroup, "w", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	msg, err := domain.ParseWorkMessage(entries[0].Fields)
	require.NoError(t, err)
	assert.Equal(t, domain.QuarterTopLeft, msg.Region.Quarter)
	assert.Empty(t, msg.SubdividedBy)
	assert.Equal(t, "1700000000", entries[0].Fields[domain.FieldTimestamp][:10])
}

func TestRun_ClearPreventsDoubleEnqueue(t *testing.T) {
	ctx := context.Background()
	broker := stream.NewMemory(stream.MemoryOptions{})

	_, err := broker.Append(ctx, DefaultResultStream, map[string]string{"stale": "1"})
	require.NoError(t, err)

	c := newTestCoordinator(t, broker, true)
	_, err = c.Run(ctx)
	require.NoError(t, err)
	report, err := c.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), report.Work.Length)
	assert.False(t, report.Results.Exists, "clear removes old results")
}

func TestRun_WithoutClearAppends(t *testing.T) {
	ctx := context.Background()
	broker := stream.NewMemory(stream.MemoryOptions{})
	c := newTestCoordinator(t, broker, false)

	_, err := c.Run(ctx)
	require.NoError(t, err)
	report, err := c.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(8), report.Work.Length)
	assert.Len(t, report.Work.Groups, 1, "group creation is idempotent")
}
