package wallet

// Network classifies a chain identifier into one of the two networks this
// system cares about.
type Network string

const (
	// NetworkCompute is the confidential-compute network (iExec Bellecour).
	NetworkCompute Network = "compute"

	// NetworkTarget is the NFT target chain (Neon EVM DevNet).
	NetworkTarget Network = "target"

	// NetworkUnknown is any other chain.
	NetworkUnknown Network = "unknown"
)

const (
	// ComputeChainID is the iExec Bellecour chain identifier.
	ComputeChainID uint64 = 134

	// TargetChainID is the Neon EVM DevNet chain identifier.
	TargetChainID uint64 = 245022926
)

// NetworkFromChainID maps a chain identifier to its Network. The mapping is
// deterministic: the two known identifiers classify, everything else is
// NetworkUnknown.
func NetworkFromChainID(chainID uint64) Network {
	switch chainID {
	case ComputeChainID:
		return NetworkCompute
	case TargetChainID:
		return NetworkTarget
	default:
		return NetworkUnknown
	}
}

// Session is a read-only snapshot of the wallet session. An empty Address
// means no account; Connected is true iff Address is non-empty.
type Session struct {
	// Address is the connected account in hex, empty when disconnected.
	Address string `json:"address"`

	// Connected reports whether a wallet account is connected.
	Connected bool `json:"connected"`

	// ChainID is the active chain identifier, zero when unknown.
	ChainID uint64 `json:"chain_id"`

	// Balance is the native-token balance as a decimal string in wei, empty
	// when not yet resolved.
	Balance string `json:"balance"`

	// Network is the classification of ChainID.
	Network Network `json:"network"`
}

// emptySession is the default disconnected state.
func emptySession() Session {
	return Session{Network: NetworkUnknown}
}
