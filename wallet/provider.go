package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeCurrency describes the native token of a chain.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ChainDefinition is the full definition of a chain that can be registered
// with a wallet provider that does not yet know it.
type ChainDefinition struct {
	// ChainID is the numeric EVM chain identifier.
	ChainID uint64 `json:"chain_id"`

	// Name is the human-readable chain name.
	Name string `json:"name"`

	// RPCURL is the JSON-RPC endpoint for the chain.
	RPCURL string `json:"rpc_url"`

	// Currency is the chain's native currency.
	Currency NativeCurrency `json:"currency"`

	// ExplorerURL is the block explorer base URL.
	ExplorerURL string `json:"explorer_url"`
}

// Events holds the typed callbacks a subscriber receives from a wallet
// provider. Nil callbacks are skipped.
type Events struct {
	// AccountsChanged fires when the active account set changes. An empty
	// slice means the wallet no longer exposes any account.
	AccountsChanged func(accounts []common.Address)

	// ChainChanged fires when the active chain changes.
	ChainChanged func(chainID uint64)

	// Connect fires when the provider establishes a connection.
	Connect func(chainID uint64)

	// Disconnect fires when the provider drops the connection.
	Disconnect func(err error)
}

// Provider is the wallet-provider boundary. All calls are asynchronous and
// fallible; implementations map their provider-specific rejection and
// unknown-chain codes onto ErrUserRejected and ErrUnknownChain so callers can
// branch on them with errors.Is.
type Provider interface {
	// RequestAccounts prompts the user for account access and returns the
	// granted accounts.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Accounts returns the already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)

	// ChainID returns the currently active chain identifier.
	ChainID(ctx context.Context) (uint64, error)

	// SwitchChain asks the provider to activate the given chain. Returns
	// ErrUnknownChain if the provider has never seen the chain.
	SwitchChain(ctx context.Context, chainID uint64) error

	// AddChain registers a chain definition with the provider. Safe to call
	// for an already-registered chain.
	AddChain(ctx context.Context, def ChainDefinition) error

	// Balance returns the native-token balance of the address in wei.
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)

	// SignMessage signs an arbitrary message with the given account.
	SignMessage(ctx context.Context, addr common.Address,
		msg []byte) ([]byte, error)

	// Subscribe registers event callbacks. Only one subscriber is supported;
	// the session Manager is the single dispatcher for everything above it.
	Subscribe(events Events)

	// Close releases provider resources.
	Close() error
}
