package wallet

import (
	"context"
	"math/big"
	"time"
)

// GasInfo is a gas price plus an expected confirmation wait for a transaction
// submitted at that price. The wait feeds the UI progress window only.
type GasInfo struct {
	GasPriceWei   *big.Int
	EstimatedWait time.Duration
}

// GasEstimator supplies gas price and confirmation-time estimates.
type GasEstimator interface {
	GasInfo(ctx context.Context) (GasInfo, error)
}

// Fast/average inclusion times observed on mainnet; a gas price at or above
// the node suggestion lands in the average window.
const defaultEstimatedWait = 2 * time.Minute

// NodeGasEstimator derives GasInfo from the node's suggested gas price.
type NodeGasEstimator struct {
	provider Provider
	wait     time.Duration
}

// NewNodeGasEstimator creates an estimator backed by a wallet provider. A
// zero wait falls back to the default window.
func NewNodeGasEstimator(provider Provider, wait time.Duration) *NodeGasEstimator {
	if wait <= 0 {
		wait = defaultEstimatedWait
	}
	return &NodeGasEstimator{provider: provider, wait: wait}
}

func (e *NodeGasEstimator) GasInfo(ctx context.Context) (GasInfo, error) {
	gasPrice, err := e.provider.SuggestGasPrice(ctx)
	if err != nil {
		return GasInfo{}, err
	}
	return GasInfo{GasPriceWei: gasPrice, EstimatedWait: e.wait}, nil
}
