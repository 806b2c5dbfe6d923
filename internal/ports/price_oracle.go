package ports

import (
	"context"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// PriceOracle obtiene precios spot actuales desde el feed de mercado.
type PriceOracle interface {
	// CurrentPrices devuelve asset → precio para los ids dados.
	// Los assets sin dato simplemente no aparecen en el resultado; solo se
	// devuelve error si el feed falla tras agotar los reintentos.
	CurrentPrices(ctx context.Context, assetIDs []string) (domain.PriceSnapshot, error)
}

// MarketLister obtiene el listado de assets seleccionables ordenado por market cap.
type MarketLister interface {
	TopAssets(ctx context.Context, n int) ([]domain.MarketAsset, error)
}
