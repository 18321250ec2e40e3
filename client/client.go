package client

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/zkresume/confidential-wallet/chain"
	"github.com/zkresume/confidential-wallet/compute"
	"github.com/zkresume/confidential-wallet/minting"
	"github.com/zkresume/confidential-wallet/processing"
	"github.com/zkresume/confidential-wallet/wallet"
)

// Config holds client configuration.
type Config struct {
	// Provider is the wallet provider backing all account, chain and
	// signing operations.
	Provider wallet.Provider

	// Network is the confidential-compute boundary. When nil, a REST
	// gateway client with default settings is used.
	Network compute.Network

	// Contract is the credential token contract on the target chain.
	Contract minting.TokenContract

	// SessionDir is where the wallet session is persisted. Empty keeps
	// the session in memory only.
	SessionDir string

	// StrictBalance makes an insufficient compute stake a hard failure
	// instead of falling back to the simulation path.
	StrictBalance bool

	// PollInterval overrides the task status polling interval.
	PollInterval time.Duration

	// PollTimeout overrides the task polling ceiling.
	PollTimeout time.Duration

	// Clock is the time source, swappable in tests.
	Clock clock.Clock

	// OnProcessingState, when set, observes claim processing transitions.
	OnProcessingState func(state processing.State)

	// OnMintingState, when set, observes minting transitions.
	OnMintingState func(state minting.State)
}

// Client is the main confidential credential client for embedding in Go
// applications. It wires the wallet session, the chain switcher, the
// compute orchestrator and the token minter behind one surface.
type Client struct {
	cfg *Config

	// Core components
	session  *wallet.Manager
	switcher *chain.Switcher

	// Operations
	orchestrator *processing.Orchestrator
	minter       *minting.Minter
}

// New creates a new confidential credential client.
//
// This is the main entry point for embedding the wallet in Go applications.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if cfg.Contract == nil {
		return nil, fmt.Errorf("token contract required")
	}

	// Session storage.
	var store wallet.SessionStore
	if cfg.SessionDir != "" {
		fileStore, err := wallet.NewFileSessionStore(cfg.SessionDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create session "+
				"store: %w", err)
		}
		store = fileStore
	} else {
		store = wallet.NewMemorySessionStore()
	}

	// Wallet session manager.
	session, err := wallet.NewManager(&wallet.ManagerConfig{
		Provider: cfg.Provider,
		Store:    store,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session "+
			"manager: %w", err)
	}

	// Chain switcher.
	switcher := chain.NewSwitcher(cfg.Provider)

	// Compute network.
	network := cfg.Network
	if network == nil {
		network = compute.NewClient(compute.DefaultConfig())
	}

	// Claim processing.
	procCfg := processing.DefaultConfig(session, network)
	procCfg.StrictBalance = cfg.StrictBalance
	if cfg.PollInterval != 0 {
		procCfg.PollInterval = cfg.PollInterval
	}
	if cfg.PollTimeout != 0 {
		procCfg.PollTimeout = cfg.PollTimeout
	}
	if cfg.Clock != nil {
		procCfg.Clock = cfg.Clock
	}
	procCfg.OnTransition = cfg.OnProcessingState
	orchestrator, err := processing.NewOrchestrator(procCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init orchestrator: %w", err)
	}

	// Credential minting.
	minter, err := minting.NewMinter(&minting.Config{
		Session:      session,
		Provider:     cfg.Provider,
		Switcher:     switcher,
		Contract:     cfg.Contract,
		Clock:        cfg.Clock,
		OnTransition: cfg.OnMintingState,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init minter: %w", err)
	}

	return &Client{
		cfg:          cfg,
		session:      session,
		switcher:     switcher,
		orchestrator: orchestrator,
		minter:       minter,
	}, nil
}

// ConnectWallet connects the wallet and returns the resulting session.
func (c *Client) ConnectWallet(ctx context.Context) (wallet.Session, error) {
	return c.session.Connect(ctx)
}

// DisconnectWallet resets the session to disconnected.
func (c *Client) DisconnectWallet() {
	c.session.Disconnect()
}

// GetSession returns a snapshot of the current wallet session.
func (c *Client) GetSession() wallet.Session {
	return c.session.GetSession()
}

// RefreshBalance re-reads the connected account's balance.
func (c *Client) RefreshBalance(ctx context.Context) (wallet.Session, error) {
	return c.session.RefreshBalance(ctx)
}

// Session exposes the underlying session manager, for callers that need to
// register listeners.
func (c *Client) Session() *wallet.Manager {
	return c.session
}

// EnsureChain switches the wallet to the given chain, registering it with
// the wallet first if it is unknown.
func (c *Client) EnsureChain(ctx context.Context, chainID uint64) error {
	return c.switcher.EnsureChain(ctx, chainID)
}

// SubmitClaim validates, seals and processes a work-experience claim on the
// confidential-compute network, blocking until the task completes, fails or
// times out.
func (c *Client) SubmitClaim(ctx context.Context,
	claim processing.Claim) (*processing.Result, error) {

	return c.orchestrator.Process(ctx, claim)
}

// TaskStatus returns the current status of a submitted task.
func (c *Client) TaskStatus(ctx context.Context,
	taskID string) compute.Status {

	return c.orchestrator.CheckStatus(ctx, taskID)
}

// MintCredential mints the processing result as a credential token owned by
// the connected account.
func (c *Client) MintCredential(ctx context.Context, result *processing.Result,
	meta minting.Metadata) (*minting.Credential, error) {

	if result == nil {
		return nil, fmt.Errorf("processing result required")
	}

	return c.minter.Mint(ctx, result.ResultHash, meta)
}

// OwnedCredentials lists the credential tokens owned by the connected
// account.
func (c *Client) OwnedCredentials(
	ctx context.Context) ([]minting.OwnedCredential, error) {

	session := c.session.GetSession()
	if !session.Connected {
		return nil, wallet.ErrNotConnected
	}

	owner := common.HexToAddress(session.Address)
	return c.minter.OwnedCredentials(ctx, owner)
}

// Close releases the provider.
func (c *Client) Close() error {
	if c.cfg.Provider != nil {
		return c.cfg.Provider.Close()
	}
	return nil
}
