package wallet

import "errors"

var (
	// ErrWalletUnavailable is returned when no wallet provider is present.
	ErrWalletUnavailable = errors.New("wallet provider unavailable")

	// ErrUserRejected is returned when the user declines a provider prompt.
	// Providers map their rejection code (MetaMask 4001) onto this error.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrUnknownChain is returned by SwitchChain when the provider does not
	// recognize the chain. Providers map their unknown-chain code (MetaMask
	// 4902) onto this error so callers can add the chain and retry.
	ErrUnknownChain = errors.New("chain not recognized by wallet provider")

	// ErrNoAccounts is returned when the provider grants access but exposes
	// no accounts.
	ErrNoAccounts = errors.New("no accounts available")

	// ErrNotConnected is returned by operations that require an active
	// session.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrSigningUnsupported is returned by providers that cannot sign.
	ErrSigningUnsupported = errors.New("message signing not supported")
)
