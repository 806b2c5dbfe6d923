package ports

import (
	"context"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// Notifier presenta el resultado de un contest recién finalizado.
type Notifier interface {
	ContestFinished(ctx context.Context, standings domain.Standings) error
}
