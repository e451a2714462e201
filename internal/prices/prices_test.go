package prices

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hyowon/folio/pkg/config"
	"github.com/hyowon/folio/pkg/logger"
)

type fakeQuoter struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  map[string]int
}

func (f *fakeQuoter) Quote(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[symbol]++
	price, ok := f.prices[symbol]
	if !ok {
		return 0, errors.New("no quote")
	}
	return price, nil
}

func (f *fakeQuoter) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func newService(q Quoter, ttl time.Duration) *Service {
	cfg := &config.Config{
		PriceCacheTTL: ttl,
		PriceWorkers:  3,
		LogLevel:      "error",
		LogFormat:     "json",
	}
	return NewService(q, cfg, logger.New(cfg))
}

func TestFetch(t *testing.T) {
	quoter := &fakeQuoter{prices: map[string]float64{"AAPL": 120, "MSFT": 300}}
	svc := newService(quoter, time.Minute)

	got := svc.Fetch(context.Background(), []string{"AAPL", "MSFT"})

	assert.Equal(t, map[string]float64{"AAPL": 120, "MSFT": 300}, got)
}

func TestFetch_FailedSymbolAbsent(t *testing.T) {
	quoter := &fakeQuoter{prices: map[string]float64{"AAPL": 120}}
	svc := newService(quoter, time.Minute)

	// One failing symbol never aborts the batch
	got := svc.Fetch(context.Background(), []string{"AAPL", "NOPE"})

	assert.Equal(t, map[string]float64{"AAPL": 120}, got)
}

func TestFetch_CachesQuotes(t *testing.T) {
	quoter := &fakeQuoter{prices: map[string]float64{"AAPL": 120}}
	svc := newService(quoter, time.Minute)

	svc.Fetch(context.Background(), []string{"AAPL"})
	svc.Fetch(context.Background(), []string{"AAPL"})

	assert.Equal(t, 1, quoter.callCount("AAPL"))
}

func TestFetch_FailuresAreNotCached(t *testing.T) {
	quoter := &fakeQuoter{prices: map[string]float64{}}
	svc := newService(quoter, time.Minute)

	svc.Fetch(context.Background(), []string{"AAPL"})
	svc.Fetch(context.Background(), []string{"AAPL"})

	// Each fetch retries a previously failed symbol
	assert.Equal(t, 2, quoter.callCount("AAPL"))
}

func TestFetch_DeduplicatesSymbols(t *testing.T) {
	quoter := &fakeQuoter{prices: map[string]float64{"AAPL": 120}}
	svc := newService(quoter, time.Minute)

	got := svc.Fetch(context.Background(), []string{"AAPL", "AAPL", ""})

	assert.Equal(t, map[string]float64{"AAPL": 120}, got)
	assert.Equal(t, 1, quoter.callCount("AAPL"))
}

func TestFetch_ManySymbolsThroughSmallPool(t *testing.T) {
	prices := make(map[string]float64)
	symbols := make([]string, 0, 20)
	for _, s := range []string{
		"A", "B", "C", "D", "E", "F", "G", "H", "I", "J",
		"K", "L", "M", "N", "O", "P", "Q", "R", "S", "T",
	} {
		prices[s] = float64(len(s))
		symbols = append(symbols, s)
	}
	svc := newService(&fakeQuoter{prices: prices}, time.Minute)

	got := svc.Fetch(context.Background(), symbols)

	assert.Len(t, got, 20)
}

func TestInvalidate(t *testing.T) {
	quoter := &fakeQuoter{prices: map[string]float64{"AAPL": 120}}
	svc := newService(quoter, time.Minute)

	svc.Fetch(context.Background(), []string{"AAPL"})
	svc.Invalidate("AAPL")
	svc.Fetch(context.Background(), []string{"AAPL"})

	assert.Equal(t, 2, quoter.callCount("AAPL"))
}

func TestFetch_Empty(t *testing.T) {
	svc := newService(&fakeQuoter{}, time.Minute)

	got := svc.Fetch(context.Background(), nil)

	assert.Empty(t, got)
}
