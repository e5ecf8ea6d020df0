package instant

import "github.com/ethereum/go-ethereum/common"

// Canonical allowance targets (the exchange proxy) per chain. The quote API
// echoes the same address in allowanceTarget; this table serves balance
// refreshes that run before any quote exists.
var allowanceTargets = map[int64]common.Address{
	1:        common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"), // Ethereum
	5:        common.HexToAddress("0xF91bB752490473B8342a3E964E855b9f9a2A668e"), // Goerli
	10:       common.HexToAddress("0xDEF1ABE32c034e558Cdd535791643C58a13aCC10"), // Optimism
	56:       common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"), // BNB Chain
	137:      common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"), // Polygon
	42161:    common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"), // Arbitrum One
	43114:    common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"), // Avalanche
	11155111: common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"), // Sepolia
}

// AllowanceTargetForChain returns the canonical spender contract for a chain,
// or the zero address if the chain is not known.
func AllowanceTargetForChain(chainID int64) common.Address {
	return allowanceTargets[chainID]
}
