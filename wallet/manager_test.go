package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	testAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	otherAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// mockProvider is a scriptable in-memory wallet provider.
type mockProvider struct {
	accounts    []common.Address
	chainID     uint64
	balance     *big.Int
	balanceErr  error
	requestErr  error
	events      Events
	addedChains []ChainDefinition
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		accounts: []common.Address{testAddr},
		chainID:  TargetChainID,
		balance:  big.NewInt(1000),
	}
}

func (p *mockProvider) RequestAccounts(
	_ context.Context) ([]common.Address, error) {

	if p.requestErr != nil {
		return nil, p.requestErr
	}
	return p.accounts, nil
}

func (p *mockProvider) Accounts(_ context.Context) ([]common.Address, error) {
	return p.accounts, nil
}

func (p *mockProvider) ChainID(_ context.Context) (uint64, error) {
	return p.chainID, nil
}

func (p *mockProvider) SwitchChain(_ context.Context, chainID uint64) error {
	p.chainID = chainID
	if p.events.ChainChanged != nil {
		p.events.ChainChanged(chainID)
	}
	return nil
}

func (p *mockProvider) AddChain(_ context.Context, def ChainDefinition) error {
	p.addedChains = append(p.addedChains, def)
	return nil
}

func (p *mockProvider) Balance(_ context.Context,
	_ common.Address) (*big.Int, error) {

	if p.balanceErr != nil {
		return nil, p.balanceErr
	}
	return p.balance, nil
}

func (p *mockProvider) SignMessage(_ context.Context, _ common.Address,
	_ []byte) ([]byte, error) {

	return nil, ErrSigningUnsupported
}

func (p *mockProvider) Subscribe(events Events) {
	p.events = events
}

func (p *mockProvider) Close() error {
	return nil
}

// TestManager_ConnectDisconnect tests the basic session lifecycle.
func TestManager_ConnectDisconnect(t *testing.T) {
	t.Parallel()

	provider := newMockProvider()
	m, err := NewManager(&ManagerConfig{Provider: provider})
	require.NoError(t, err)

	// Starts disconnected.
	require.False(t, m.GetSession().Connected)
	require.Equal(t, NetworkUnknown, m.GetSession().Network)

	session, err := m.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, session.Connected)
	require.Equal(t, testAddr.Hex(), session.Address)
	require.Equal(t, TargetChainID, session.ChainID)
	require.Equal(t, NetworkTarget, session.Network)
	require.Equal(t, "1000", session.Balance)

	m.Disconnect()
	session = m.GetSession()
	require.False(t, session.Connected)
	require.Empty(t, session.Address)
	require.Equal(t, NetworkUnknown, session.Network)
}

// TestManager_ConnectNoProvider tests connecting without a provider.
func TestManager_ConnectNoProvider(t *testing.T) {
	t.Parallel()

	m, err := NewManager(nil)
	require.NoError(t, err)

	_, err = m.Connect(context.Background())
	require.ErrorIs(t, err, ErrWalletUnavailable)
	require.False(t, m.GetSession().Connected)
}

// TestManager_ConnectNoAccounts tests a provider granting zero accounts.
func TestManager_ConnectNoAccounts(t *testing.T) {
	t.Parallel()

	provider := newMockProvider()
	provider.accounts = nil
	m, err := NewManager(&ManagerConfig{Provider: provider})
	require.NoError(t, err)

	_, err = m.Connect(context.Background())
	require.ErrorIs(t, err, ErrNoAccounts)
	require.False(t, m.GetSession().Connected)
}

// TestManager_ConnectRejected tests a declined connect prompt. The session
// must keep its previous state.
func TestManager_ConnectRejected(t *testing.T) {
	t.Parallel()

	provider := newMockProvider()
	provider.requestErr = ErrUserRejected
	m, err := NewManager(&ManagerConfig{Provider: provider})
	require.NoError(t, err)

	_, err = m.Connect(context.Background())
	require.ErrorIs(t, err, ErrUserRejected)
	require.False(t, m.GetSession().Connected)
}

// TestManager_BalanceFailureIsNotFatal tests that a balance blip does not
// fail the connect.
func TestManager_BalanceFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	provider := newMockProvider()
	provider.balanceErr = errors.New("rpc down")
	m, err := NewManager(&ManagerConfig{Provider: provider})
	require.NoError(t, err)

	session, err := m.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, session.Connected)
	require.Empty(t, session.Balance)
}

// TestManager_SessionPersistence tests restoring a session across manager
// instances through a shared store.
func TestManager_SessionPersistence(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	provider := newMockProvider()

	m1, err := NewManager(&ManagerConfig{Provider: provider, Store: store})
	require.NoError(t, err)
	_, err = m1.Connect(context.Background())
	require.NoError(t, err)

	// A fresh manager on the same store starts with the persisted session.
	m2, err := NewManager(&ManagerConfig{Provider: provider, Store: store})
	require.NoError(t, err)
	session := m2.GetSession()
	require.True(t, session.Connected)
	require.Equal(t, testAddr.Hex(), session.Address)

	// Disconnect clears the store.
	m2.Disconnect()
	m3, err := NewManager(&ManagerConfig{Provider: provider, Store: store})
	require.NoError(t, err)
	require.False(t, m3.GetSession().Connected)
}

// TestManager_AccountChange tests the provider account-change event: a new
// account replaces the address, an empty list disconnects.
func TestManager_AccountChange(t *testing.T) {
	t.Parallel()

	provider := newMockProvider()
	m, err := NewManager(&ManagerConfig{Provider: provider})
	require.NoError(t, err)

	var changed []string
	m.RegisterListener(Listener{
		OnAccountChange: func(addr string) {
			changed = append(changed, addr)
		},
	})

	_, err = m.Connect(context.Background())
	require.NoError(t, err)

	provider.events.AccountsChanged([]common.Address{otherAddr})
	session := m.GetSession()
	require.True(t, session.Connected)
	require.Equal(t, otherAddr.Hex(), session.Address)

	provider.events.AccountsChanged(nil)
	require.False(t, m.GetSession().Connected)

	require.Equal(t, []string{otherAddr.Hex(), ""}, changed)
}

// TestManager_ChainChange tests that a chain-change event reclassifies the
// network and fires the listener.
func TestManager_ChainChange(t *testing.T) {
	t.Parallel()

	provider := newMockProvider()
	m, err := NewManager(&ManagerConfig{Provider: provider})
	require.NoError(t, err)

	var gotChain uint64
	m.RegisterListener(Listener{
		OnChainChange: func(chainID uint64) { gotChain = chainID },
	})

	_, err = m.Connect(context.Background())
	require.NoError(t, err)

	provider.events.ChainChanged(ComputeChainID)

	session := m.GetSession()
	require.Equal(t, ComputeChainID, session.ChainID)
	require.Equal(t, NetworkCompute, session.Network)
	require.Equal(t, ComputeChainID, gotChain)
}

// TestManager_InvalidationOnChainChange tests that contexts derived from the
// session are cancelled when the chain changes mid-flight.
func TestManager_InvalidationOnChainChange(t *testing.T) {
	t.Parallel()

	provider := newMockProvider()
	m, err := NewManager(&ManagerConfig{Provider: provider})
	require.NoError(t, err)
	_, err = m.Connect(context.Background())
	require.NoError(t, err)

	ctx, cancel := m.InvalidationContext(context.Background())
	defer cancel()

	provider.events.ChainChanged(ComputeChainID)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled on chain change")
	}
}

// TestManager_InvalidationOnDisconnect tests that disconnecting cancels
// derived contexts too.
func TestManager_InvalidationOnDisconnect(t *testing.T) {
	t.Parallel()

	provider := newMockProvider()
	m, err := NewManager(&ManagerConfig{Provider: provider})
	require.NoError(t, err)
	_, err = m.Connect(context.Background())
	require.NoError(t, err)

	ctx, cancel := m.InvalidationContext(context.Background())
	defer cancel()

	m.Disconnect()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled on disconnect")
	}
}

// TestManager_RefreshBalance tests re-reading the balance.
func TestManager_RefreshBalance(t *testing.T) {
	t.Parallel()

	provider := newMockProvider()
	m, err := NewManager(&ManagerConfig{Provider: provider})
	require.NoError(t, err)

	_, err = m.RefreshBalance(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)

	_, err = m.Connect(context.Background())
	require.NoError(t, err)

	provider.balance = big.NewInt(5555)
	session, err := m.RefreshBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, "5555", session.Balance)
}

// TestNetworkFromChainID tests the chain classification.
func TestNetworkFromChainID(t *testing.T) {
	t.Parallel()

	require.Equal(t, NetworkCompute, NetworkFromChainID(ComputeChainID))
	require.Equal(t, NetworkTarget, NetworkFromChainID(TargetChainID))
	require.Equal(t, NetworkUnknown, NetworkFromChainID(1))
	require.Equal(t, NetworkUnknown, NetworkFromChainID(0))
}
