package instant

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"instant-swap/pkg/multicall"
	"instant-swap/pkg/store"
	"instant-swap/pkg/types"
)

// BalanceFetcher refreshes the two token slots plus the account's native
// balance. ERC-20 reads go through the multicall batcher in one round trip;
// the native coin has no contract surface, so its slot is synthesized from
// the account balance and is always unlocked.
type BalanceFetcher struct {
	store    *store.Store
	wallet   BalanceReader
	batcher  *multicall.Batcher
	spender  common.Address
	reporter Reporter
	logger   *zap.Logger
}

// BalanceReader is the slice of the wallet provider the fetcher needs.
type BalanceReader interface {
	NativeBalance(ctx context.Context, address common.Address) (*big.Int, error)
}

func NewBalanceFetcher(
	st *store.Store,
	reader BalanceReader,
	batcher *multicall.Batcher,
	spender common.Address,
	reporter Reporter,
	logger *zap.Logger,
) *BalanceFetcher {
	return &BalanceFetcher{
		store:    st,
		wallet:   reader,
		batcher:  batcher,
		spender:  spender,
		reporter: reporter,
		logger:   logger.With(zap.String("module", "balances")),
	}
}

// Refresh re-reads balances and allowances for both selected tokens. On
// failure the previous slot values are left in place and the error goes to
// the reporter; stale balances beat a spurious "zero balance" flash.
func (f *BalanceFetcher) Refresh(ctx context.Context) {
	snap := f.store.Snapshot()
	if snap.Account.State != types.AccountReady {
		return
	}
	owner := snap.Account.Address
	ownerHex := owner.Hex()

	nativeBalance, err := f.wallet.NativeBalance(ctx, owner)
	if err != nil {
		f.reporter.Report(fmt.Errorf("failed to read native balance: %w", err))
	} else {
		f.store.UpdateNativeBalance(ownerHex, nativeBalance)
	}

	var erc20s []common.Address
	if snap.TokenIn != nil && !snap.TokenIn.IsNative() {
		erc20s = append(erc20s, common.HexToAddress(snap.TokenIn.Address))
	}
	if snap.TokenOut != nil && !snap.TokenOut.IsNative() {
		erc20s = append(erc20s, common.HexToAddress(snap.TokenOut.Address))
	}

	var batch map[common.Address]multicall.BalanceAndAllowance
	if len(erc20s) > 0 {
		batch, err = f.batcher.BalancesAndAllowances(ctx, erc20s, owner, f.spender)
		if err != nil {
			f.reporter.Report(fmt.Errorf("failed to batch token reads: %w", err))
			batch = nil
		}
	}

	if snap.TokenIn != nil {
		if balance, ok := f.slotBalance(*snap.TokenIn, nativeBalance, batch); ok {
			f.store.SetTokenBalanceIn(balance)
		}
	}
	if snap.TokenOut != nil {
		if balance, ok := f.slotBalance(*snap.TokenOut, nativeBalance, batch); ok {
			f.store.SetTokenBalanceOut(balance)
		}
	}
}

// slotBalance builds one slot's TokenBalance. The native coin never needs an
// allowance, so it always reports unlocked.
func (f *BalanceFetcher) slotBalance(
	token types.Token,
	nativeBalance *big.Int,
	batch map[common.Address]multicall.BalanceAndAllowance,
) (types.TokenBalance, bool) {
	if token.IsNative() {
		if nativeBalance == nil {
			return types.TokenBalance{}, false
		}
		return types.TokenBalance{Token: token, Balance: nativeBalance, IsUnlocked: true}, true
	}

	entry, ok := batch[common.HexToAddress(token.Address)]
	if !ok || entry.Failed {
		if ok {
			f.logger.Warn("keeping previous balance for token after failed read",
				zap.String("token", token.Symbol))
		}
		return types.TokenBalance{}, false
	}
	return types.TokenBalance{
		Token:      token,
		Balance:    entry.Balance,
		IsUnlocked: entry.Allowance.Sign() > 0,
	}, true
}
