package ledger

// ledger.go: snapshots de precios locked (inicio) y final (fin) por contest.
//
// La captura es segura bajo invocación concurrente sin lock global: solo se
// piden al oráculo los assets que faltan y el insert es insert-if-absent por
// (contest, asset, kind). singleflight colapsa además las capturas duplicadas
// dentro del mismo proceso para no gastar cuota del oráculo.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alejandrodnm/tokenpools/internal/domain"
	"github.com/alejandrodnm/tokenpools/internal/ports"
)

// Ledger captura y lee los snapshots de precios de los contests.
type Ledger struct {
	store  ports.PriceLedgerStore
	oracle ports.PriceOracle
	now    func() time.Time
	group  singleflight.Group
}

// New crea un Ledger. El reloj por defecto es time.Now.
func New(store ports.PriceLedgerStore, oracle ports.PriceOracle) *Ledger {
	return &Ledger{store: store, oracle: oracle, now: time.Now}
}

// WithClock sustituye el reloj (tests).
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// CaptureLocked fija el precio baseline de cada asset que aún no lo tenga.
// Devuelve el snapshot locked completo tras la captura.
func (l *Ledger) CaptureLocked(ctx context.Context, contestID string, assetIDs []string) (domain.PriceSnapshot, error) {
	return l.capture(ctx, contestID, domain.SnapshotLocked, assetIDs)
}

// CaptureFinal fija el precio final de cada asset que aún no lo tenga.
func (l *Ledger) CaptureFinal(ctx context.Context, contestID string, assetIDs []string) (domain.PriceSnapshot, error) {
	return l.capture(ctx, contestID, domain.SnapshotFinal, assetIDs)
}

// GetLocked devuelve el snapshot locked (un asset ausente vale 0 para el scoring).
func (l *Ledger) GetLocked(ctx context.Context, contestID string) (domain.PriceSnapshot, error) {
	return l.store.GetPrices(ctx, contestID, domain.SnapshotLocked)
}

// GetFinal devuelve el snapshot final.
func (l *Ledger) GetFinal(ctx context.Context, contestID string) (domain.PriceSnapshot, error) {
	return l.store.GetPrices(ctx, contestID, domain.SnapshotFinal)
}

// Missing devuelve los assets de assetIDs que no están en snap.
func Missing(snap domain.PriceSnapshot, assetIDs []string) []string {
	var out []string
	for _, id := range assetIDs {
		if _, ok := snap[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (l *Ledger) capture(ctx context.Context, contestID string, kind domain.SnapshotKind, assetIDs []string) (domain.PriceSnapshot, error) {
	key := string(kind) + ":" + contestID
	v, err, shared := l.group.Do(key, func() (any, error) {
		return l.doCapture(ctx, contestID, kind, assetIDs)
	})
	if shared {
		slog.Debug("price capture shared", "contest", contestID, "kind", kind)
	}
	snap, _ := v.(domain.PriceSnapshot)
	if shared && err == nil {
		// Otra llamada pudo tener un set de assets distinto: completar lo que falte.
		if len(Missing(snap, assetIDs)) > 0 {
			return l.doCapture(ctx, contestID, kind, assetIDs)
		}
	}
	return snap, err
}

// doCapture: leer lo existente → pedir al oráculo solo lo que falta → insert-if-absent.
//
// Con respuesta completa del oráculo, un asset sin dato se guarda a 0 (baseline
// cero). Si el oráculo falla solo se escriben los precios que sí llegaron; los
// ausentes quedan sin fila para que el siguiente intento los vuelva a pedir.
func (l *Ledger) doCapture(ctx context.Context, contestID string, kind domain.SnapshotKind, assetIDs []string) (domain.PriceSnapshot, error) {
	existing, err := l.store.GetPrices(ctx, contestID, kind)
	if err != nil {
		return nil, fmt.Errorf("ledger.capture %s: read %s: %w", contestID, kind, err)
	}
	missing := Missing(existing, assetIDs)
	if len(missing) == 0 {
		return existing, nil
	}

	fetched, fetchErr := l.oracle.CurrentPrices(ctx, missing)

	rows := make(domain.PriceSnapshot, len(missing))
	for _, id := range missing {
		price, ok := fetched[id]
		switch {
		case ok && price > 0:
			rows[id] = price
		case fetchErr == nil:
			rows[id] = 0
		}
	}

	inserted, err := l.store.InsertPrices(ctx, contestID, kind, rows, l.now())
	if err != nil {
		return nil, fmt.Errorf("ledger.capture %s: insert %s: %w", contestID, kind, err)
	}

	snap, err := l.store.GetPrices(ctx, contestID, kind)
	if err != nil {
		return nil, fmt.Errorf("ledger.capture %s: reload %s: %w", contestID, kind, err)
	}

	slog.Info("prices captured",
		"contest", contestID,
		"kind", kind,
		"requested", len(missing),
		"inserted", inserted,
		"total", len(snap),
	)

	if fetchErr != nil {
		return snap, fmt.Errorf("ledger.capture %s: %d of %d %s prices pending: %w",
			contestID, len(Missing(snap, assetIDs)), len(assetIDs), kind, fetchErr)
	}
	return snap, nil
}
