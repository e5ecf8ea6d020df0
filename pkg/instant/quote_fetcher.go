package instant

import (
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"instant-swap/pkg/client"
	"instant-swap/pkg/store"
	"instant-swap/pkg/types"
)

const quoteErrorMessage = "Error fetching price, please try again"

// QuoteClient is the pricing collaborator. *client.ZeroExClient satisfies it.
type QuoteClient interface {
	FetchQuote(ctx context.Context, req client.QuoteRequest) (*types.SwapQuote, error)
}

// QuoteParams describes one quote request as driven by user input. Amount is
// the base-unit quantity of the side the user typed into; IsIn says which
// side that was. The request always quotes a sale of `Amount`: when the user
// drives the out side, sell and buy tokens are swapped, so the response's
// buyAmount is denominated in the in token.
type QuoteParams struct {
	TokenIn      types.Token
	TokenOut     types.Token
	Amount       *big.Int
	IsIn         bool
	TakerAddress string
	Affiliate    *types.AffiliateInfo
	// Silent requests (heartbeat refreshes) neither flip pending state nor
	// flash errors.
	Silent bool
}

// QuoteFetcher debounces quote requests and correlates responses with a
// monotonically increasing sequence id. Debouncing collapses keystroke
// bursts; the sequence id is the actual correctness guard. A response is
// applied only if no newer request (or invalidation) happened in the
// meantime, so out-of-order network completion can never resurrect a stale
// quote.
type QuoteFetcher struct {
	store    *store.Store
	client   QuoteClient
	reporter Reporter
	logger   *zap.Logger
	debounce time.Duration

	// fetchCtx backs the debounced fetches. They fire after the scheduling
	// call has returned, so a caller-scoped context (an HTTP request's, say)
	// would already be canceled by the time the request goes out.
	fetchCtx context.Context

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

const defaultDebounce = 200 * time.Millisecond

func NewQuoteFetcher(st *store.Store, qc QuoteClient, reporter Reporter, debounce time.Duration, logger *zap.Logger) *QuoteFetcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &QuoteFetcher{
		store:    st,
		client:   qc,
		reporter: reporter,
		logger:   logger.With(zap.String("module", "quote-fetcher")),
		debounce: debounce,
		fetchCtx: context.Background(),
	}
}

// Invalidate supersedes every in-flight and scheduled request. Called on
// token changes and panel dismissal; their late responses are then dropped
// by the sequence check.
func (f *QuoteFetcher) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// Schedule registers a request for after the quiescence window. Pending state
// is asserted synchronously by the caller (store.SetQuotePending) so the UI
// shows activity immediately even though the network call is coalesced. The
// deferred fetch runs on the fetcher's own context, not the caller's.
func (f *QuoteFetcher) Schedule(params QuoteParams) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.debounce, func() {
		f.fetch(f.fetchCtx, seq, params)
	})
	f.mu.Unlock()
}

// RequestNow bypasses the debounce window but keeps the sequence guard. Used
// by the heartbeat's silent refreshes.
func (f *QuoteFetcher) RequestNow(ctx context.Context, params QuoteParams) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.mu.Unlock()
	f.fetch(ctx, seq, params)
}

func (f *QuoteFetcher) isCurrent(seq uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return seq == f.seq
}

func (f *QuoteFetcher) fetch(ctx context.Context, seq uint64, params QuoteParams) {
	sellToken, buyToken := params.TokenIn, params.TokenOut
	if !params.IsIn {
		sellToken, buyToken = buyToken, sellToken
	}

	quote, err := f.client.FetchQuote(ctx, client.QuoteRequest{
		SellToken:      sellToken.Address,
		BuyToken:       buyToken.Address,
		SellAmount:     params.Amount,
		TakerAddress:   params.TakerAddress,
		SkipValidation: true,
		Affiliate:      params.Affiliate,
	})

	if !f.isCurrent(seq) {
		f.logger.Debug("dropping superseded quote response", zap.Uint64("seq", seq))
		return
	}

	if err != nil {
		f.logger.Debug("quote request failed", zap.Error(err))
		if !params.Silent {
			f.store.SetQuoteFailure()
			f.store.FlashError(quoteErrorMessage)
		}
		return
	}

	// A quote is only usable while the order machine is idle; a refresh that
	// raced a submission must not swap the quote under the in-flight order.
	if f.store.Snapshot().OrderState.Phase() != types.ProcessNone {
		f.logger.Debug("dropping quote, order already in flight")
		return
	}

	f.store.ClearError()
	f.store.ApplyQuote(quote, params.IsIn)
}
