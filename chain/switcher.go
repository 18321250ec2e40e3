package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/zkresume/confidential-wallet/wallet"
)

// ErrNetworkSwitchFailed is returned when the wallet could not be moved to
// the required chain, after the add-then-retry protocol was exhausted.
var ErrNetworkSwitchFailed = errors.New("network switch failed")

// Switcher guarantees the wallet's active chain equals a required target
// chain before a dependent operation proceeds.
type Switcher struct {
	provider wallet.Provider
}

// NewSwitcher creates a chain Switcher on top of a wallet provider.
func NewSwitcher(provider wallet.Provider) *Switcher {
	return &Switcher{provider: provider}
}

// EnsureChain makes the given chain the wallet's active chain. It is a no-op
// when the wallet is already there, performing zero provider mutations.
//
// Wallet providers commonly refuse to switch to a chain they have never
// seen, so on an unknown-chain failure the chain definition is registered
// and the switch retried exactly once. Registration is only attempted after
// a switch failure, never speculatively, to avoid needless prompts.
func (s *Switcher) EnsureChain(ctx context.Context, chainID uint64) error {
	if s.provider == nil {
		return wallet.ErrWalletUnavailable
	}

	current, err := s.provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to read active chain: %v",
			ErrNetworkSwitchFailed, err)
	}
	if current == chainID {
		return nil
	}

	log.Debugf("Switching active chain %d -> %d", current, chainID)

	err = s.provider.SwitchChain(ctx, chainID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, wallet.ErrUnknownChain) {
		return fmt.Errorf("%w: %v", ErrNetworkSwitchFailed, err)
	}

	def, ok := Definition(chainID)
	if !ok {
		return fmt.Errorf("%w: no definition for unknown chain %d",
			ErrNetworkSwitchFailed, chainID)
	}

	log.Infof("Chain %d unknown to wallet, registering %s", chainID,
		def.Name)

	if err := s.provider.AddChain(ctx, def); err != nil {
		return fmt.Errorf("%w: failed to register chain: %v",
			ErrNetworkSwitchFailed, err)
	}
	if err := s.provider.SwitchChain(ctx, chainID); err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkSwitchFailed, err)
	}

	return nil
}
