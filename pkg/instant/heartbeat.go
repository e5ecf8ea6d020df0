package instant

import (
	"context"
	"time"

	"go.uber.org/zap"

	"instant-swap/pkg/store"
	"instant-swap/pkg/types"
)

const defaultHeartbeatInterval = 30 * time.Second

// Heartbeat periodically refreshes the held quote so a user who walks away
// from the widget still sees a current price. Refreshes are silent: no
// pending spinner, no error flash, and a failure simply leaves the previous
// quote in place until the next tick.
type Heartbeat struct {
	store    *store.Store
	fetcher  *QuoteFetcher
	interval time.Duration
	logger   *zap.Logger
}

func NewHeartbeat(st *store.Store, fetcher *QuoteFetcher, interval time.Duration, logger *zap.Logger) *Heartbeat {
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	return &Heartbeat{
		store:    st,
		fetcher:  fetcher,
		interval: interval,
		logger:   logger.With(zap.String("module", "heartbeat")),
	}
}

// Run ticks until the context is cancelled.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("heartbeat stopped")
			return
		case <-ticker.C:
			h.Tick(ctx)
		}
	}
}

// Tick issues one silent refresh if the widget is in a refreshable state:
// tokens selected, an amount typed, and no order underway. Refreshing under
// an in-flight order would swap the quote out from beneath the transaction
// the user already reviewed.
func (h *Heartbeat) Tick(ctx context.Context) {
	snap := h.store.Snapshot()
	if snap.TokenIn == nil || snap.TokenOut == nil {
		return
	}
	if snap.OrderState.Phase() != types.ProcessNone {
		return
	}

	amount := snap.AmountIn
	if !snap.IsIn {
		amount = snap.AmountOut
	}
	if amount == nil || amount.Sign() <= 0 {
		return
	}

	params := QuoteParams{
		TokenIn:   *snap.TokenIn,
		TokenOut:  *snap.TokenOut,
		Amount:    amount,
		IsIn:      snap.IsIn,
		Affiliate: snap.Affiliate,
		Silent:    true,
	}
	if snap.Account.State == types.AccountReady {
		params.TakerAddress = snap.Account.Address.Hex()
	}
	h.fetcher.RequestNow(ctx, params)
}
