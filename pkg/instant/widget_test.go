package instant_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"instant-swap/pkg/client"
	"instant-swap/pkg/instant"
	"instant-swap/pkg/store"
	"instant-swap/pkg/types"
)

func newTestWidget(t *testing.T, provider *fakeProvider, quoteClient instant.QuoteClient) *instant.Widget {
	t.Helper()
	if quoteClient == nil {
		quoteClient = &fakeQuoteClient{respond: func(req client.QuoteRequest) (*types.SwapQuote, error) {
			return quoteFor(req), nil
		}}
	}
	return instant.New(instant.Config{ChainID: 1, Debounce: time.Millisecond},
		provider, quoteClient, failingCaller{}, zap.NewNop())
}

func TestWidgetConnect(t *testing.T) {
	t.Run("unlocked wallet lands on ready", func(t *testing.T) {
		provider := &fakeProvider{
			addresses:     []common.Address{common.HexToAddress(testAccount)},
			nativeBalance: big.NewInt(900),
		}
		w := newTestWidget(t, provider, nil)

		require.NoError(t, w.Connect(context.Background()))

		snap := w.State()
		require.Equal(t, types.AccountReady, snap.Account.State)
		require.Equal(t, common.HexToAddress(testAccount), snap.Account.Address)
		require.Equal(t, big.NewInt(900), snap.Account.NativeBalance)
	})

	t.Run("no addresses lands on locked", func(t *testing.T) {
		w := newTestWidget(t, &fakeProvider{}, nil)

		require.NoError(t, w.Connect(context.Background()))
		require.Equal(t, types.AccountLocked, w.State().Account.State)
	})

	t.Run("provider failure lands on none", func(t *testing.T) {
		w := newTestWidget(t, &fakeProvider{listErr: errors.New("wallet gone")}, nil)

		require.Error(t, w.Connect(context.Background()))
		require.Equal(t, types.AccountNone, w.State().Account.State)
	})
}

func TestWidgetEditAmountFlow(t *testing.T) {
	w := newTestWidget(t, &fakeProvider{}, nil)
	ctx := context.Background()

	w.SelectTokenIn(ctx, weth)
	w.SelectTokenOut(ctx, dai)

	w.EditAmount(ctx, big.NewInt(100), true)
	require.Equal(t, types.AsyncPending, w.State().QuoteState)

	waitFor(t, func() bool { return w.State().QuoteState == types.AsyncSuccess })
	require.Equal(t, big.NewInt(200), w.State().AmountOut)

	// Clearing the amount removes the quote entirely.
	w.EditAmount(ctx, nil, true)
	snap := w.State()
	require.Equal(t, types.AsyncNone, snap.QuoteState)
	require.Nil(t, snap.LatestQuote)
}

func TestWidgetQuoteOutlivesGestureContext(t *testing.T) {
	w := newTestWidget(t, &fakeProvider{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	w.SelectTokenIn(ctx, weth)
	w.SelectTokenOut(ctx, dai)
	w.EditAmount(ctx, big.NewInt(100), true)

	// The gesture's context ends before the debounce window does, the way an
	// HTTP request context would. The debounced fetch must still go out.
	cancel()

	waitFor(t, func() bool { return w.State().QuoteState == types.AsyncSuccess })
	require.Equal(t, big.NewInt(200), w.State().AmountOut)
}

func TestWidgetTokenChangeRefreshesQuote(t *testing.T) {
	fake := &fakeQuoteClient{respond: func(req client.QuoteRequest) (*types.SwapQuote, error) {
		return quoteFor(req), nil
	}}
	w := newTestWidget(t, &fakeProvider{}, fake)
	ctx := context.Background()

	w.SelectTokenIn(ctx, weth)
	w.SelectTokenOut(ctx, dai)
	w.EditAmount(ctx, big.NewInt(100), true)
	waitFor(t, func() bool { return w.State().QuoteState == types.AsyncSuccess })

	usdc := types.Token{ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6}
	w.SelectTokenOut(ctx, usdc)

	// The driving amount is re-quoted against the new pair.
	waitFor(t, func() bool {
		f := fake
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.calls) >= 2 && f.calls[len(f.calls)-1].BuyToken == usdc.Address
	})
}

func TestWidgetLockedTokenSwapJourney(t *testing.T) {
	approveHash := common.HexToHash("0xa111")
	provider := &fakeProvider{
		addresses:     []common.Address{common.HexToAddress(testAccount)},
		nativeBalance: big.NewInt(1_000_000),
		nextHash:      approveHash,
		confirmOK:     true,
		estimatedGas:  46_000,
		gasPrice:      big.NewInt(2),
	}
	w := newTestWidget(t, provider, nil)
	ctx := context.Background()

	require.NoError(t, w.Connect(ctx))
	w.SelectTokenIn(ctx, weth)
	w.SelectTokenOut(ctx, dai)

	w.EditAmount(ctx, big.NewInt(100), true)
	waitFor(t, func() bool { return w.State().QuoteState == types.AsyncSuccess })

	// First press: the input token's allowance is unknown, so the flow opens
	// the approval panel and prices the approve call for it.
	require.NoError(t, w.PrimaryAction(ctx))
	snap := w.State()
	require.Equal(t, types.StepApprove, snap.Step)
	require.True(t, snap.StepWithApprove)
	require.Equal(t, big.NewInt(92_000), snap.ApprovalGasEstimate)

	// Second press broadcasts the approval; its confirmation advances the
	// flow to the review panel on its own.
	require.NoError(t, w.PrimaryAction(ctx))
	w.Wait()
	snap = w.State()
	require.Equal(t, types.ProcessSuccess, snap.ApproveState.Phase())
	require.Equal(t, approveHash.Hex(), types.TxHashOf(snap.ApproveState))
	require.Equal(t, types.StepReviewOrder, snap.Step)

	swapHash := common.HexToHash("0x5a42")
	provider.mu.Lock()
	provider.nextHash = swapHash
	provider.mu.Unlock()

	// Third press broadcasts the swap itself.
	require.NoError(t, w.PrimaryAction(ctx))
	w.Wait()
	snap = w.State()
	require.Equal(t, types.ProcessSuccess, snap.OrderState.Phase())
	require.Equal(t, swapHash.Hex(), types.TxHashOf(snap.OrderState))

	// Two transactions went out: approve() to the token, then the quote's
	// calldata.
	sent := provider.sentPayloads()
	require.Len(t, sent, 2)
	require.Equal(t, common.HexToAddress(weth.Address), sent[0].To)
	require.Equal(t, []byte{0x09, 0x5e, 0xa7, 0xb3}, sent[0].Data[:4])
	require.Equal(t, snap.LatestQuote.Data, sent[1].Data)
}

func TestWidgetRetryRestoresInitialState(t *testing.T) {
	w := newTestWidget(t, &fakeProvider{}, nil)
	ctx := context.Background()

	w.SelectTokenIn(ctx, weth)
	w.SelectTokenOut(ctx, dai)
	w.EditAmount(ctx, big.NewInt(100), true)
	waitFor(t, func() bool { return w.State().QuoteState == types.AsyncSuccess })

	w.Retry()

	snap := w.State()
	require.Nil(t, snap.AmountIn)
	require.Nil(t, snap.AmountOut)
	require.Nil(t, snap.LatestQuote)
	require.Equal(t, types.AsyncNone, snap.QuoteState)
	require.Equal(t, types.StepSwap, snap.Step)
	require.Equal(t, types.ProcessNone, snap.OrderState.Phase())
	require.Equal(t, types.ProcessNone, snap.ApproveState.Phase())

	// Repeating the reset changes nothing.
	w.Retry()
	require.Equal(t, snap, w.State())
}

func TestHeartbeatTick(t *testing.T) {
	setup := func(t *testing.T) (*store.Store, *fakeQuoteClient, *instant.Heartbeat) {
		st := store.New(1, nil, zap.NewNop())
		fake := &fakeQuoteClient{respond: func(req client.QuoteRequest) (*types.SwapQuote, error) {
			return quoteFor(req), nil
		}}
		fetcher := instant.NewQuoteFetcher(st, fake, instant.NewZapReporter(zap.NewNop()), time.Millisecond, zap.NewNop())
		hb := instant.NewHeartbeat(st, fetcher, time.Minute, zap.NewNop())
		return st, fake, hb
	}

	t.Run("refreshes a held amount silently", func(t *testing.T) {
		st, fake, hb := setup(t)
		st.SelectTokenIn(weth)
		st.SelectTokenOut(dai)
		st.SetAmount(big.NewInt(100), true)
		st.ApplyQuote(&types.SwapQuote{SellAmount: big.NewInt(100), BuyAmount: big.NewInt(200)}, true)

		hb.Tick(context.Background())

		require.Equal(t, 1, fake.callCount())
		// Silent: no pending flicker, the fresh quote just replaces the old.
		require.Equal(t, types.AsyncSuccess, st.Snapshot().QuoteState)
	})

	t.Run("skips when no amount is typed", func(t *testing.T) {
		st, fake, hb := setup(t)
		st.SelectTokenIn(weth)
		st.SelectTokenOut(dai)

		hb.Tick(context.Background())
		require.Zero(t, fake.callCount())
	})

	t.Run("skips while an order is in flight", func(t *testing.T) {
		st, fake, hb := setup(t)
		st.SelectTokenIn(weth)
		st.SelectTokenOut(dai)
		st.SetAmount(big.NewInt(100), true)
		require.True(t, st.BeginOrderValidation())

		hb.Tick(context.Background())
		require.Zero(t, fake.callCount())
	})
}
