package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/adapters/storage"
	"github.com/alejandrodnm/tokenpools/internal/application/ledger"
	"github.com/alejandrodnm/tokenpools/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOracle devuelve precios fijos y cuenta los assets pedidos.
type fakeOracle struct {
	mu        sync.Mutex
	prices    domain.PriceSnapshot
	err       error
	calls     int
	requested []string
}

func (f *fakeOracle) CurrentPrices(_ context.Context, ids []string) (domain.PriceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requested = append(f.requested, ids...)
	out := make(domain.PriceSnapshot)
	for _, id := range ids {
		if p, ok := f.prices[id]; ok {
			out[id] = p
		}
	}
	return out, f.err
}

func (f *fakeOracle) set(prices domain.PriceSnapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = prices
	f.err = err
}

func newLedger(t *testing.T, oracle *fakeOracle) *ledger.Ledger {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return ledger.New(db, oracle).WithClock(func() time.Time { return fixed })
}

func TestCaptureLocked_AbsentPriceStoredAsZero(t *testing.T) {
	oracle := &fakeOracle{prices: domain.PriceSnapshot{"btc": 60000, "eth": 3000}}
	l := newLedger(t, oracle)

	snap, err := l.CaptureLocked(context.Background(), "c1", []string{"btc", "eth", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriceSnapshot{"btc": 60000, "eth": 3000, "ghost": 0}, snap)
}

func TestCaptureLocked_IsIdempotent(t *testing.T) {
	oracle := &fakeOracle{prices: domain.PriceSnapshot{"btc": 60000, "eth": 3000}}
	l := newLedger(t, oracle)
	ctx := context.Background()

	_, err := l.CaptureLocked(ctx, "c1", []string{"btc", "eth"})
	require.NoError(t, err)

	// El precio cambia, pero el baseline ya está fijado
	oracle.set(domain.PriceSnapshot{"btc": 1, "eth": 1}, nil)
	snap, err := l.CaptureLocked(ctx, "c1", []string{"btc", "eth"})
	require.NoError(t, err)
	assert.InDelta(t, 60000.0, snap["btc"], 0.001)
	assert.Equal(t, 1, oracle.calls, "no debe volver a consultar el oráculo")
}

func TestCaptureLocked_OnlyFetchesMissing(t *testing.T) {
	oracle := &fakeOracle{prices: domain.PriceSnapshot{"btc": 10, "eth": 20, "sol": 30}}
	l := newLedger(t, oracle)
	ctx := context.Background()

	_, err := l.CaptureLocked(ctx, "c1", []string{"btc"})
	require.NoError(t, err)
	oracle.requested = nil

	snap, err := l.CaptureLocked(ctx, "c1", []string{"btc", "eth", "sol"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"eth", "sol"}, oracle.requested)
	assert.Len(t, snap, 3)
}

func TestCaptureLocked_OracleFailureLeavesMissingForRetry(t *testing.T) {
	oracle := &fakeOracle{
		prices: domain.PriceSnapshot{"btc": 10},
		err:    domain.ErrOracleUnavailable,
	}
	l := newLedger(t, oracle)
	ctx := context.Background()

	snap, err := l.CaptureLocked(ctx, "c1", []string{"btc", "eth"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.Equal(t, domain.PriceSnapshot{"btc": 10}, snap, "eth no se fija a 0 tras un fallo")

	oracle.set(domain.PriceSnapshot{"btc": 99, "eth": 20}, nil)
	snap, err = l.CaptureLocked(ctx, "c1", []string{"btc", "eth"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriceSnapshot{"btc": 10, "eth": 20}, snap)
}

func TestCapture_LockedAndFinalAreIndependent(t *testing.T) {
	oracle := &fakeOracle{prices: domain.PriceSnapshot{"btc": 10}}
	l := newLedger(t, oracle)
	ctx := context.Background()

	_, err := l.CaptureLocked(ctx, "c1", []string{"btc"})
	require.NoError(t, err)
	oracle.set(domain.PriceSnapshot{"btc": 12}, nil)
	_, err = l.CaptureFinal(ctx, "c1", []string{"btc"})
	require.NoError(t, err)

	locked, err := l.GetLocked(ctx, "c1")
	require.NoError(t, err)
	final, err := l.GetFinal(ctx, "c1")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, locked["btc"], 0.001)
	assert.InDelta(t, 12.0, final["btc"], 0.001)
}

func TestCaptureLocked_ConcurrentCallsWriteOneRowPerAsset(t *testing.T) {
	oracle := &fakeOracle{prices: domain.PriceSnapshot{"a": 1, "b": 2, "c": 3}}
	l := newLedger(t, oracle)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.CaptureLocked(ctx, "c1", []string{"a", "b", "c"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	locked, err := l.GetLocked(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.PriceSnapshot{"a": 1, "b": 2, "c": 3}, locked)
}

func TestMissing(t *testing.T) {
	snap := domain.PriceSnapshot{"a": 1, "b": 0}
	assert.Equal(t, []string{"c"}, ledger.Missing(snap, []string{"a", "b", "c"}))
	assert.Empty(t, ledger.Missing(snap, nil))
}
