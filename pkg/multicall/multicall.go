package multicall

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Multicall3 is deployed at the same address on every supported chain.
var DefaultContractAddress = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const multicallABI = `[{"inputs":[{"components":[{"name":"target","type":"address"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"},{"name":"requireSuccess","type":"bool"}],"name":"tryAggregate","outputs":[{"components":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}]`

const erc20ReadABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"remaining","type":"uint256"}],"type":"function"}]`

// ContractCaller is the read-only RPC surface the batcher needs; ethclient
// satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BalanceAndAllowance is one token's batched read result. Failed reports a
// per-token call failure; the balance and allowance are then zero rather than
// the whole batch aborting.
type BalanceAndAllowance struct {
	Balance   *big.Int
	Allowance *big.Int
	Failed    bool
}

type call struct {
	Target   common.Address `abi:"target"`
	CallData []byte         `abi:"callData"`
}

type result struct {
	Success    bool   `abi:"success"`
	ReturnData []byte `abi:"returnData"`
}

var (
	parseOnce    sync.Once
	parsedMulti  abi.ABI
	parsedERC20  abi.ABI
	parseABIsErr error
)

func loadABIs() error {
	parseOnce.Do(func() {
		var err error
		parsedMulti, err = abi.JSON(strings.NewReader(multicallABI))
		if err != nil {
			parseABIsErr = fmt.Errorf("failed to parse multicall ABI: %w", err)
			return
		}
		parsedERC20, err = abi.JSON(strings.NewReader(erc20ReadABI))
		if err != nil {
			parseABIsErr = fmt.Errorf("failed to parse ERC20 ABI: %w", err)
		}
	})
	return parseABIsErr
}

// Batcher reads balances and allowances for many tokens in a single RPC
// round trip via Multicall3 tryAggregate.
type Batcher struct {
	caller   ContractCaller
	contract common.Address
	logger   *zap.Logger
}

// NewBatcher creates a Batcher. A zero contract address selects the canonical
// Multicall3 deployment.
func NewBatcher(caller ContractCaller, contract common.Address, logger *zap.Logger) *Batcher {
	if contract == (common.Address{}) {
		contract = DefaultContractAddress
	}
	return &Batcher{
		caller:   caller,
		contract: contract,
		logger:   logger.With(zap.String("module", "multicall")),
	}
}

// BalancesAndAllowances batches balanceOf(owner) and allowance(owner, spender)
// for each token contract. requireSuccess is false: a reverting call for one
// token (for example a bad address) degrades that token's entry to
// Failed=true, zero values, without aborting the rest of the batch.
func (b *Batcher) BalancesAndAllowances(
	ctx context.Context,
	tokens []common.Address,
	owner common.Address,
	spender common.Address,
) (map[common.Address]BalanceAndAllowance, error) {
	if err := loadABIs(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return map[common.Address]BalanceAndAllowance{}, nil
	}

	calls := make([]call, 0, len(tokens)*2)
	for _, token := range tokens {
		balanceData, err := parsedERC20.Pack("balanceOf", owner)
		if err != nil {
			return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
		}
		allowanceData, err := parsedERC20.Pack("allowance", owner, spender)
		if err != nil {
			return nil, fmt.Errorf("failed to pack allowance: %w", err)
		}
		calls = append(calls,
			call{Target: token, CallData: balanceData},
			call{Target: token, CallData: allowanceData},
		)
	}

	input, err := parsedMulti.Pack("tryAggregate", calls, false)
	if err != nil {
		return nil, fmt.Errorf("failed to pack tryAggregate: %w", err)
	}

	contract := b.contract
	output, err := b.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("multicall failed: %w", err)
	}

	unpacked, err := parsedMulti.Unpack("tryAggregate", output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack tryAggregate: %w", err)
	}
	var results []result
	if err := parsedMulti.Methods["tryAggregate"].Outputs.Copy(&results, unpacked); err != nil {
		return nil, fmt.Errorf("failed to copy tryAggregate results: %w", err)
	}
	if len(results) != len(calls) {
		return nil, fmt.Errorf("multicall returned %d results for %d calls", len(results), len(calls))
	}

	out := make(map[common.Address]BalanceAndAllowance, len(tokens))
	for i, token := range tokens {
		balanceRes, allowanceRes := results[i*2], results[i*2+1]

		entry := BalanceAndAllowance{Balance: big.NewInt(0), Allowance: big.NewInt(0)}
		if balance, ok := unpackUint256(balanceRes); ok {
			entry.Balance = balance
		} else {
			entry.Failed = true
		}
		if allowance, ok := unpackUint256(allowanceRes); ok {
			entry.Allowance = allowance
		} else {
			entry.Failed = true
		}
		if entry.Failed {
			b.logger.Warn("token read failed in batch, reporting zero",
				zap.String("token", token.Hex()))
		}
		out[token] = entry
	}
	return out, nil
}

func unpackUint256(r result) (*big.Int, bool) {
	if !r.Success || len(r.ReturnData) < 32 {
		return nil, false
	}
	return new(big.Int).SetBytes(r.ReturnData[:32]), true
}
