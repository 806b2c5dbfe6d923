package coingecko

// simplePriceResponse es la respuesta de /simple/price:
//
//	{"bitcoin": {"usd": 67000.12}, "ethereum": {"usd": 3100.5}}
type simplePriceResponse map[string]map[string]float64

// marketResponse es un elemento de /coins/markets.
type marketResponse struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	CurrentPrice  *float64 `json:"current_price"`
	MarketCapRank *int     `json:"market_cap_rank"`
}
