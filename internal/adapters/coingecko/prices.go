package coingecko

// prices.go: precios spot por lotes.
//
// /simple/price acepta muchos ids por request, pero la URL tiene límite práctico.
// Partimos en lotes y los lanzamos en paralelo; el rate limiter de doWithRetry
// marca el ritmo sin semáforo explícito.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

const (
	simplePricePath = "/simple/price"
	vsCurrency      = "usd"
	priceBatchSize  = 100
)

// CurrentPrices devuelve asset → precio USD para los ids dados.
//
// Los ids sin dato no aparecen en el mapa. Si algún lote falla tras agotar los
// reintentos se devuelve el mapa parcial junto con el error, para que el
// llamador decida si degrada (scoring live) o aborta (captura del ledger).
func (c *Client) CurrentPrices(ctx context.Context, assetIDs []string) (domain.PriceSnapshot, error) {
	ids := dedupe(assetIDs)
	if len(ids) == 0 {
		return domain.PriceSnapshot{}, nil
	}

	batches := splitBatches(ids, priceBatchSize)

	type batchResult struct {
		prices domain.PriceSnapshot
		err    error
		idx    int
	}

	resultCh := make(chan batchResult, len(batches))
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prices, err := c.fetchPriceBatch(ctx, batch)
			resultCh <- batchResult{prices: prices, err: err, idx: i}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	result := make(domain.PriceSnapshot, len(ids))
	var errs []error
	for r := range resultCh {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("batch %d: %w", r.idx, r.err))
			continue
		}
		for k, v := range r.prices {
			result[k] = v
		}
	}

	slog.Debug("current prices fetched", "requested", len(ids), "priced", len(result))

	if len(errs) > 0 {
		return result, fmt.Errorf("coingecko.CurrentPrices: %w", errors.Join(errs...))
	}
	return result, nil
}

// fetchPriceBatch hace un GET /simple/price para un lote.
func (c *Client) fetchPriceBatch(ctx context.Context, ids []string) (domain.PriceSnapshot, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", vsCurrency)

	var resp simplePriceResponse
	if err := c.get(ctx, c.baseURL+simplePricePath+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("GET %s: %w", simplePricePath, err)
	}
	return mapSimplePrices(resp, ids), nil
}

// mapSimplePrices extrae solo los ids pedidos que tienen precio USD > 0.
func mapSimplePrices(resp simplePriceResponse, ids []string) domain.PriceSnapshot {
	out := make(domain.PriceSnapshot, len(ids))
	for _, id := range ids {
		quote, ok := resp[id]
		if !ok {
			continue
		}
		if p, ok := quote[vsCurrency]; ok && p > 0 {
			out[id] = p
		}
	}
	return out
}

// splitBatches divide ids en slices de tamaño máximo size.
func splitBatches(ids []string, size int) [][]string {
	if size <= 0 {
		size = priceBatchSize
	}
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for i := 0; i < len(ids); i += size {
		end := min(i+size, len(ids))
		batches = append(batches, ids[i:end])
	}
	return batches
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
