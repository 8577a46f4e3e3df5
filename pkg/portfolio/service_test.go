package portfolio

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/coinstack/pkg/catalog"
	"github.com/matzehuels/coinstack/pkg/engine"
	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/ledger"
	"github.com/matzehuels/coinstack/pkg/prices"
	"github.com/matzehuels/coinstack/pkg/store"
)

func newTestService(t *testing.T, st store.Store, opts Options) *Service {
	t.Helper()
	return NewService(engine.New(engine.Config{Width: 20, Height: 30}), nil, st, quietLogger(), opts)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestNewServiceDefaults(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, Options{})
	assert.NotNil(t, svc.Engine)
	assert.NotNil(t, svc.Prices)
	assert.IsType(t, &store.NullStore{}, svc.Store)
	assert.NotNil(t, svc.Logger)
	assert.Equal(t, store.DefaultKey, svc.key)
	assert.Equal(t, engine.DefaultWidth, svc.Engine.Width())
}

func TestAddAndMetrics(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, Options{})

	blocks, err := svc.Add(ctx, catalog.Dogecoin, 0.5)
	require.NoError(t, err)
	assert.Len(t, blocks, 5)

	m := svc.Metrics()
	assert.Equal(t, 1, m.AssetCount)
	assert.InDelta(t, 100.0/7, m.DiversificationPct, 1e-9)
	assert.InDelta(t, 0.04, m.TotalValue, 1e-12)

	_, err = svc.Add(ctx, catalog.Bitcoin, -1)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidQuantity))
	assert.Equal(t, 5, svc.Engine.Len())
}

func TestRemoveAndBlockDetail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, Options{})

	blocks, err := svc.Add(ctx, catalog.Ethereum, 2)
	require.NoError(t, err)
	svc.Drain()

	b, detail, err := svc.Block(blocks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, blocks[0].ID, b.ID)
	assert.Equal(t, "Ethereum", detail.Name)
	assert.InDelta(t, 2.0/3*2500, detail.Value, 1e-6)
	assert.InDelta(t, 100.0/3, detail.Share, 1e-6)

	removed, err := svc.Remove(ctx, blocks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, blocks[0].ID, removed.ID)
	assert.Equal(t, 2, svc.Engine.Len())

	_, _, err = svc.Block(blocks[0].ID)
	assert.True(t, errors.Is(err, errors.ErrCodeBlockNotFound))
	_, err = svc.Remove(ctx, blocks[0].ID)
	assert.True(t, errors.Is(err, errors.ErrCodeBlockNotFound))
	_, _, err = svc.Block("")
	assert.True(t, errors.IsInvalid(err))
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, Options{})

	updates, cancel := svc.Subscribe(4)
	_, err := svc.Add(ctx, catalog.Bitcoin, 0.1)
	require.NoError(t, err)

	select {
	case snap := <-updates:
		assert.Len(t, snap.Engine.Blocks, 1)
		assert.Equal(t, 1, snap.Metrics.BlockCount)
		require.Len(t, snap.Holdings, 1)
		assert.Equal(t, catalog.Bitcoin, snap.Holdings[0].AssetID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after Add")
	}

	cancel()
	cancel()
	_, open := <-updates
	assert.False(t, open, "cancel closes the channel")

	// No subscribers: mutations must not block.
	_, err = svc.Add(ctx, catalog.Bitcoin, 0.1)
	require.NoError(t, err)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, Options{})

	_, cancel := svc.Subscribe(1)
	defer cancel()

	for i := 0; i < 5; i++ {
		_, err := svc.Add(ctx, catalog.ShibaInu, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 30, svc.Engine.Len())
}

func TestPauseResume(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, Options{})
	_, err := svc.Add(ctx, catalog.Solana, 1)
	require.NoError(t, err)

	svc.Pause()
	assert.True(t, svc.Paused())
	assert.True(t, svc.Snapshot().Paused)
	_, ran := svc.Step()
	assert.False(t, ran)
	assert.Equal(t, uint64(0), svc.Engine.Snapshot().Tick)

	svc.Resume()
	res, ran := svc.Step()
	assert.True(t, ran)
	assert.Equal(t, 1, res.Moved)
}

func TestRun(t *testing.T) {
	svc := newTestService(t, nil, Options{})
	_, err := svc.Add(context.Background(), catalog.Cardano, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = svc.Run(ctx, time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, svc.Engine.Snapshot().Tick)

	err = svc.Run(context.Background(), 0)
	assert.True(t, errors.IsInvalid(err))
}

func TestSetPrice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, Options{})
	_, err := svc.Add(ctx, catalog.Bitcoin, 0.1)
	require.NoError(t, err)

	require.NoError(t, svc.SetPrice(catalog.Bitcoin, prices.Quote{USD: 10, Change24h: 9}))
	m := svc.Metrics()
	assert.InDelta(t, 1.0, m.TotalValue, 1e-9)
	assert.Equal(t, ledger.RiskHigh, m.RiskLevel)

	assert.Error(t, svc.SetPrice(catalog.Bitcoin, prices.Quote{USD: -1}))

	svc.SetPrices(map[string]prices.Quote{catalog.Bitcoin: {USD: 20}})
	assert.InDelta(t, 2.0, svc.Metrics().TotalValue, 1e-9)
}

func TestReorganize(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, Options{})
	_, err := svc.Add(ctx, catalog.Bitcoin, 1)
	require.NoError(t, err)
	svc.Drain()

	res := svc.Reorganize(ctx)
	assert.Equal(t, 3, res.Placed)
	assert.NoError(t, svc.Engine.Check())
}
