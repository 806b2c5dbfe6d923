package coingecko

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

const (
	marketsPath    = "/coins/markets"
	maxMarketsPage = 250
)

// TopAssets devuelve los n primeros assets por market cap (n ≤ 250).
// El orden del resultado es el que define el coste de cada asset.
func (c *Client) TopAssets(ctx context.Context, n int) ([]domain.MarketAsset, error) {
	if n <= 0 {
		return nil, nil
	}
	n = min(n, maxMarketsPage)

	q := url.Values{}
	q.Set("vs_currency", vsCurrency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(n))
	q.Set("page", "1")
	q.Set("sparkline", "false")

	var resp []marketResponse
	if err := c.get(ctx, c.baseURL+marketsPath+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("coingecko.TopAssets: %w", err)
	}

	assets := mapMarkets(resp)
	slog.Debug("market listing fetched", "requested", n, "received", len(assets))
	return assets, nil
}

// mapMarkets convierte la respuesta al modelo de dominio. Si falta el rank
// de market cap se usa la posición en la respuesta.
func mapMarkets(resp []marketResponse) []domain.MarketAsset {
	out := make([]domain.MarketAsset, 0, len(resp))
	for i, m := range resp {
		if m.ID == "" {
			continue
		}
		a := domain.MarketAsset{
			ID:            m.ID,
			Symbol:        strings.ToUpper(m.Symbol),
			Name:          m.Name,
			MarketCapRank: i + 1,
		}
		if m.MarketCapRank != nil && *m.MarketCapRank > 0 {
			a.MarketCapRank = *m.MarketCapRank
		}
		if m.CurrentPrice != nil {
			a.CurrentPrice = *m.CurrentPrice
		}
		out = append(out, a)
	}
	return out
}
