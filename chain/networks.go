package chain

import "github.com/zkresume/confidential-wallet/wallet"

// ComputeChain returns the definition of the confidential-compute network
// (iExec Bellecour).
func ComputeChain() wallet.ChainDefinition {
	return wallet.ChainDefinition{
		ChainID: wallet.ComputeChainID,
		Name:    "iExec Bellecour",
		RPCURL:  "https://bellecour.iex.ec",
		Currency: wallet.NativeCurrency{
			Name:     "RLC",
			Symbol:   "RLC",
			Decimals: 9,
		},
		ExplorerURL: "https://blockscout-bellecour.iex.ec",
	}
}

// TargetChain returns the definition of the NFT target chain (Neon EVM
// DevNet).
func TargetChain() wallet.ChainDefinition {
	return wallet.ChainDefinition{
		ChainID: wallet.TargetChainID,
		Name:    "Neon EVM DevNet",
		RPCURL:  "https://devnet.neonevm.org",
		Currency: wallet.NativeCurrency{
			Name:     "NEON",
			Symbol:   "NEON",
			Decimals: 18,
		},
		ExplorerURL: "https://devnet.neonscan.org",
	}
}

// Definition returns the chain definition for a known chain identifier.
func Definition(chainID uint64) (wallet.ChainDefinition, bool) {
	switch chainID {
	case wallet.ComputeChainID:
		return ComputeChain(), true
	case wallet.TargetChainID:
		return TargetChain(), true
	default:
		return wallet.ChainDefinition{}, false
	}
}
