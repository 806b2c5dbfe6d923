package contest

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// quoteCache guarda el último precio actual de cada asset durante un TTL
// corto. Solo lo usan las lecturas live; los snapshots del ledger siempre
// consultan el oráculo.
type quoteCache struct {
	ttl   time.Duration
	cache *lru.Cache // assetID → quote
}

type quote struct {
	price float64
	at    time.Time
}

func newQuoteCache(size int, ttl time.Duration) (*quoteCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("contest.newQuoteCache: %w", err)
	}
	return &quoteCache{ttl: ttl, cache: cache}, nil
}

// lookup devuelve los precios frescos y los ids que hay que pedir al oráculo.
func (q *quoteCache) lookup(ids []string, now time.Time) (domain.PriceSnapshot, []string) {
	fresh := make(domain.PriceSnapshot, len(ids))
	var stale []string
	for _, id := range ids {
		v, ok := q.cache.Get(id)
		if !ok {
			stale = append(stale, id)
			continue
		}
		qt := v.(quote)
		if now.Sub(qt.at) >= q.ttl {
			stale = append(stale, id)
			continue
		}
		fresh[id] = qt.price
	}
	return fresh, stale
}

func (q *quoteCache) store(prices domain.PriceSnapshot, now time.Time) {
	for id, p := range prices {
		q.cache.Add(id, quote{price: p, at: now})
	}
}
