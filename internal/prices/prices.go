// Package prices resolves ticker symbols to last prices. Quotes are
// cached with a TTL and fetched through a bounded worker pool; a symbol
// that fails to quote is simply absent from the result, never an error
// for the batch.
package prices

import (
	"context"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hyowon/folio/pkg/config"
	"github.com/hyowon/folio/pkg/logger"
)

// Quoter fetches the last price for a single symbol
type Quoter interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}

// Service caches quotes and fans uncached symbols out to a worker pool
type Service struct {
	quoter  Quoter
	cache   *gocache.Cache
	workers int
	logger  *logger.Logger
}

// NewService creates a price service from config
func NewService(quoter Quoter, cfg *config.Config, log *logger.Logger) *Service {
	return &Service{
		quoter:  quoter,
		cache:   gocache.New(cfg.PriceCacheTTL, 2*cfg.PriceCacheTTL),
		workers: cfg.PriceWorkers,
		logger:  log,
	}
}

// Fetch returns a best-effort symbol-to-price map. Cached quotes are
// served without touching the provider; the rest are fetched
// concurrently and failures leave their symbol out of the result.
func (s *Service) Fetch(ctx context.Context, symbols []string) map[string]float64 {
	result := make(map[string]float64, len(symbols))
	var missing []string

	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		if cached, ok := s.cache.Get(symbol); ok {
			result[symbol] = cached.(float64)
			continue
		}
		missing = append(missing, symbol)
	}

	if len(missing) == 0 {
		return result
	}

	type quote struct {
		symbol string
		price  float64
	}

	jobs := make(chan string)
	quotes := make(chan quote, len(missing))

	workers := s.workers
	if workers > len(missing) {
		workers = len(missing)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				price, err := s.quoter.Quote(ctx, symbol)
				if err != nil {
					s.logger.WithError(err).WithField("symbol", symbol).
						Debug("quote unavailable")
					continue
				}
				quotes <- quote{symbol: symbol, price: price}
			}
		}()
	}

	for _, symbol := range missing {
		jobs <- symbol
	}
	close(jobs)
	wg.Wait()
	close(quotes)

	for q := range quotes {
		s.cache.SetDefault(q.symbol, q.price)
		result[q.symbol] = q.price
	}
	return result
}

// Invalidate drops a symbol's cached quote
func (s *Service) Invalidate(symbol string) {
	s.cache.Delete(symbol)
}
