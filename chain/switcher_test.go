package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/zkresume/confidential-wallet/wallet"
)

// countingProvider records every provider mutation so tests can assert on
// the exact call sequence.
type countingProvider struct {
	chainID uint64

	// known is the set of chains the provider will switch to.
	known map[uint64]bool

	chainIDCalls int
	switchCalls  int
	addCalls     int

	switchErr error
}

func newCountingProvider(active uint64, known ...uint64) *countingProvider {
	p := &countingProvider{
		chainID: active,
		known:   map[uint64]bool{active: true},
	}
	for _, id := range known {
		p.known[id] = true
	}
	return p
}

func (p *countingProvider) RequestAccounts(
	_ context.Context) ([]common.Address, error) {

	return nil, nil
}

func (p *countingProvider) Accounts(
	_ context.Context) ([]common.Address, error) {

	return nil, nil
}

func (p *countingProvider) ChainID(_ context.Context) (uint64, error) {
	p.chainIDCalls++
	return p.chainID, nil
}

func (p *countingProvider) SwitchChain(_ context.Context,
	chainID uint64) error {

	p.switchCalls++
	if p.switchErr != nil {
		return p.switchErr
	}
	if !p.known[chainID] {
		return wallet.ErrUnknownChain
	}
	p.chainID = chainID
	return nil
}

func (p *countingProvider) AddChain(_ context.Context,
	def wallet.ChainDefinition) error {

	p.addCalls++
	p.known[def.ChainID] = true
	return nil
}

func (p *countingProvider) Balance(_ context.Context,
	_ common.Address) (*big.Int, error) {

	return big.NewInt(0), nil
}

func (p *countingProvider) SignMessage(_ context.Context, _ common.Address,
	_ []byte) ([]byte, error) {

	return nil, wallet.ErrSigningUnsupported
}

func (p *countingProvider) Subscribe(_ wallet.Events) {}

func (p *countingProvider) Close() error { return nil }

// TestEnsureChain_AlreadyActive tests that the switcher is a pure no-op when
// the wallet is already on the target chain.
func TestEnsureChain_AlreadyActive(t *testing.T) {
	t.Parallel()

	provider := newCountingProvider(wallet.TargetChainID)
	s := NewSwitcher(provider)

	err := s.EnsureChain(context.Background(), wallet.TargetChainID)
	require.NoError(t, err)

	require.Equal(t, 1, provider.chainIDCalls)
	require.Zero(t, provider.switchCalls)
	require.Zero(t, provider.addCalls)
}

// TestEnsureChain_DirectSwitch tests switching to a chain the provider
// already knows.
func TestEnsureChain_DirectSwitch(t *testing.T) {
	t.Parallel()

	provider := newCountingProvider(
		wallet.ComputeChainID, wallet.TargetChainID,
	)
	s := NewSwitcher(provider)

	err := s.EnsureChain(context.Background(), wallet.TargetChainID)
	require.NoError(t, err)

	require.Equal(t, wallet.TargetChainID, provider.chainID)
	require.Equal(t, 1, provider.switchCalls)
	require.Zero(t, provider.addCalls)
}

// TestEnsureChain_AddThenRetry tests the unknown-chain recovery: register
// the definition, then retry the switch exactly once. Three provider
// mutations total.
func TestEnsureChain_AddThenRetry(t *testing.T) {
	t.Parallel()

	provider := newCountingProvider(wallet.ComputeChainID)
	s := NewSwitcher(provider)

	err := s.EnsureChain(context.Background(), wallet.TargetChainID)
	require.NoError(t, err)

	require.Equal(t, wallet.TargetChainID, provider.chainID)
	require.Equal(t, 2, provider.switchCalls)
	require.Equal(t, 1, provider.addCalls)
}

// TestEnsureChain_UserRejected tests that a rejection is not retried, and no
// registration is attempted.
func TestEnsureChain_UserRejected(t *testing.T) {
	t.Parallel()

	provider := newCountingProvider(wallet.ComputeChainID)
	provider.switchErr = wallet.ErrUserRejected
	s := NewSwitcher(provider)

	err := s.EnsureChain(context.Background(), wallet.TargetChainID)
	require.ErrorIs(t, err, ErrNetworkSwitchFailed)

	require.Equal(t, 1, provider.switchCalls)
	require.Zero(t, provider.addCalls)
}

// TestEnsureChain_UnknownDefinition tests switching to a chain with no local
// definition to register.
func TestEnsureChain_UnknownDefinition(t *testing.T) {
	t.Parallel()

	provider := newCountingProvider(wallet.ComputeChainID)
	s := NewSwitcher(provider)

	err := s.EnsureChain(context.Background(), 999)
	require.ErrorIs(t, err, ErrNetworkSwitchFailed)
	require.Zero(t, provider.addCalls)
}

// TestEnsureChain_NoProvider tests the switcher without a wallet.
func TestEnsureChain_NoProvider(t *testing.T) {
	t.Parallel()

	s := NewSwitcher(nil)
	err := s.EnsureChain(context.Background(), wallet.TargetChainID)
	require.ErrorIs(t, err, wallet.ErrWalletUnavailable)
}

// TestDefinition tests the known chain registry.
func TestDefinition(t *testing.T) {
	t.Parallel()

	def, ok := Definition(wallet.ComputeChainID)
	require.True(t, ok)
	require.Equal(t, "iExec Bellecour", def.Name)
	require.Equal(t, 9, def.Currency.Decimals)

	def, ok = Definition(wallet.TargetChainID)
	require.True(t, ok)
	require.Equal(t, "Neon EVM DevNet", def.Name)
	require.Equal(t, 18, def.Currency.Decimals)

	_, ok = Definition(1)
	require.False(t, ok)
}
