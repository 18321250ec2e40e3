package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Listener holds the typed callbacks components register with the Manager.
// The Manager is the single dispatcher for provider events; nothing above it
// subscribes to the provider directly. Nil callbacks are skipped.
type Listener struct {
	// OnConnect fires after a successful connect with the new address.
	OnConnect func(address string)

	// OnDisconnect fires after the session resets to disconnected.
	OnDisconnect func()

	// OnAccountChange fires when the active account changes. An empty
	// address means the wallet dropped all accounts.
	OnAccountChange func(address string)

	// OnChainChange fires when the active chain changes.
	OnChainChange func(chainID uint64)
}

// ManagerConfig holds configuration for the session Manager.
type ManagerConfig struct {
	// Provider is the wallet provider. May be nil, in which case Connect
	// fails with ErrWalletUnavailable and the session stays disconnected.
	Provider Provider

	// Store persists the session across restarts. Defaults to an in-memory
	// store when nil.
	Store SessionStore
}

// Manager is the single source of truth for the wallet session: who is
// connected, on which chain, with what balance. All components read it but
// only the Manager mutates it, and every mutation replaces the whole session
// under the lock so readers never observe a half-updated state.
type Manager struct {
	cfg *ManagerConfig

	session   Session
	listeners []Listener

	// invalidate is closed and replaced whenever the chain changes or the
	// session disconnects, so in-flight operations can be torn down.
	invalidate chan struct{}

	mu sync.RWMutex
}

// NewManager creates a session Manager, restoring any persisted session.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg == nil {
		cfg = &ManagerConfig{}
	}
	if cfg.Store == nil {
		cfg.Store = NewMemorySessionStore()
	}

	m := &Manager{
		cfg:        cfg,
		session:    emptySession(),
		invalidate: make(chan struct{}),
	}

	// Restore a persisted session. A restore failure is not fatal; the
	// manager just starts disconnected.
	session, ok, err := cfg.Store.Load()
	if err != nil {
		log.Warnf("Unable to restore wallet session: %v", err)
	} else if ok {
		m.session = session
	}

	if cfg.Provider != nil {
		cfg.Provider.Subscribe(Events{
			AccountsChanged: m.handleAccountsChanged,
			ChainChanged:    m.handleChainChanged,
			Connect:         m.handleProviderConnect,
			Disconnect:      m.handleProviderDisconnect,
		})
	}

	return m, nil
}

// RegisterListener registers typed callbacks for session events.
func (m *Manager) RegisterListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, l)
}

// GetSession returns a read-only snapshot. It never blocks on the network.
func (m *Manager) GetSession() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.session
}

// Connect requests account access from the provider, resolves the active
// chain and balance, and replaces the session. On failure the session keeps
// its last-known-good state.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	if m.cfg.Provider == nil {
		return m.GetSession(), ErrWalletUnavailable
	}

	accounts, err := m.cfg.Provider.RequestAccounts(ctx)
	if err != nil {
		return m.GetSession(), fmt.Errorf("failed to request "+
			"accounts: %w", err)
	}
	if len(accounts) == 0 {
		return m.GetSession(), ErrNoAccounts
	}
	addr := accounts[0]

	chainID, err := m.cfg.Provider.ChainID(ctx)
	if err != nil {
		return m.GetSession(), fmt.Errorf("failed to resolve chain "+
			"id: %w", err)
	}

	// Balance resolution is best effort; a chain hiccup here must not fail
	// the connect.
	balance := ""
	if bal, err := m.cfg.Provider.Balance(ctx, addr); err != nil {
		log.Debugf("Unable to resolve balance for %s: %v", addr, err)
	} else {
		balance = bal.String()
	}

	session := Session{
		Address:   addr.Hex(),
		Connected: true,
		ChainID:   chainID,
		Balance:   balance,
		Network:   NetworkFromChainID(chainID),
	}
	m.replaceSession(session, false)

	log.Infof("Wallet connected: address=%s chain=%d network=%v",
		session.Address, session.ChainID, session.Network)

	m.notify(func(l Listener) {
		if l.OnConnect != nil {
			l.OnConnect(session.Address)
		}
	})

	return session, nil
}

// Disconnect resets the session to its disconnected defaults and removes the
// persisted state. It always succeeds.
func (m *Manager) Disconnect() {
	m.replaceSession(emptySession(), true)

	if err := m.cfg.Store.Clear(); err != nil {
		log.Warnf("Unable to clear persisted session: %v", err)
	}

	log.Info("Wallet disconnected")

	m.notify(func(l Listener) {
		if l.OnDisconnect != nil {
			l.OnDisconnect()
		}
	})
}

// RefreshBalance re-reads the balance for the connected account and replaces
// the session with the updated value.
func (m *Manager) RefreshBalance(ctx context.Context) (Session, error) {
	session := m.GetSession()
	if !session.Connected {
		return session, ErrNotConnected
	}
	if m.cfg.Provider == nil {
		return session, ErrWalletUnavailable
	}

	bal, err := m.cfg.Provider.Balance(
		ctx, common.HexToAddress(session.Address),
	)
	if err != nil {
		return session, fmt.Errorf("failed to resolve balance: %w", err)
	}

	session.Balance = bal.String()
	m.replaceSession(session, false)

	return session, nil
}

// InvalidationContext derives a context that is cancelled when the chain
// changes or the session disconnects. Every suspendable operation driven by
// the session runs under one of these, so a chain change invalidates all
// in-flight task and mint state instead of letting it race a stale chain.
func (m *Manager) InvalidationContext(
	ctx context.Context) (context.Context, context.CancelFunc) {

	m.mu.RLock()
	invalidate := m.invalidate
	m.mu.RUnlock()

	derived, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-invalidate:
			cancel()
		case <-derived.Done():
		}
	}()

	return derived, cancel
}

// replaceSession atomically swaps the whole session and persists it. When
// reset is true the invalidation channel is cycled so derived contexts
// cancel.
func (m *Manager) replaceSession(session Session, reset bool) {
	m.mu.Lock()
	m.session = session
	if reset {
		close(m.invalidate)
		m.invalidate = make(chan struct{})
	}
	m.mu.Unlock()

	if session.Connected {
		if err := m.cfg.Store.Save(session); err != nil {
			log.Warnf("Unable to persist session: %v", err)
		}
	}
}

// notify dispatches an event to all registered listeners.
func (m *Manager) notify(fn func(Listener)) {
	m.mu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, l := range listeners {
		fn(l)
	}
}

// handleAccountsChanged processes a provider account-change event. An empty
// account list is treated as a disconnect.
func (m *Manager) handleAccountsChanged(accounts []common.Address) {
	if len(accounts) == 0 {
		log.Info("Provider reported empty account list, disconnecting")
		m.Disconnect()

		m.notify(func(l Listener) {
			if l.OnAccountChange != nil {
				l.OnAccountChange("")
			}
		})
		return
	}

	session := m.GetSession()
	session.Address = accounts[0].Hex()
	session.Connected = true
	m.replaceSession(session, false)

	log.Infof("Active account changed: %s", session.Address)

	m.notify(func(l Listener) {
		if l.OnAccountChange != nil {
			l.OnAccountChange(session.Address)
		}
	})
}

// handleChainChanged processes a provider chain-change event. This is a hard
// reset point: in-flight operations under an InvalidationContext are
// cancelled rather than reconciled.
func (m *Manager) handleChainChanged(chainID uint64) {
	session := m.GetSession()
	session.ChainID = chainID
	session.Network = NetworkFromChainID(chainID)
	m.replaceSession(session, true)

	log.Infof("Active chain changed: chain=%d network=%v", chainID,
		session.Network)

	m.notify(func(l Listener) {
		if l.OnChainChange != nil {
			l.OnChainChange(chainID)
		}
	})
}

// handleProviderConnect processes a provider connect event, which carries the
// active chain.
func (m *Manager) handleProviderConnect(chainID uint64) {
	session := m.GetSession()
	session.ChainID = chainID
	session.Network = NetworkFromChainID(chainID)
	m.replaceSession(session, false)
}

// handleProviderDisconnect processes a provider-initiated disconnect.
func (m *Manager) handleProviderDisconnect(err error) {
	if err != nil {
		log.Warnf("Provider disconnected: %v", err)
	}
	m.Disconnect()
}
