package rpcwallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zkresume/confidential-wallet/wallet"
)

// Config holds configuration for the RPC wallet provider.
type Config struct {
	// RPCURL is the initial JSON-RPC endpoint.
	RPCURL string

	// Account is the account this provider exposes.
	Account common.Address

	// PrivateKey, when set, enables message signing and transaction
	// submission for Account. Without it the provider is read-only.
	PrivateKey *ecdsa.PrivateKey

	// KnownChains seeds the set of chains the provider can switch to
	// without an AddChain call first.
	KnownChains []wallet.ChainDefinition

	// RateLimit is the number of RPC requests per second allowed.
	// Default: 10
	RateLimit int

	// Timeout is the HTTP request timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// RetryAttempts is the number of retry attempts for failed requests.
	// Default: 3
	RetryAttempts int

	// RetryDelay is the delay between retry attempts.
	// Default: 1 second
	RetryDelay time.Duration
}

// DefaultConfig returns a default configuration for the given endpoint and
// account.
func DefaultConfig(rpcURL string, account common.Address) *Config {
	return &Config{
		RPCURL:        rpcURL,
		Account:       account,
		RateLimit:     10,
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Provider implements wallet.Provider against an EVM JSON-RPC endpoint for
// headless use. A browser wallet switches chains by itself; here a switch
// re-targets the client at the registered RPC endpoint of the chain, and
// AddChain registers a definition locally. The provider-event surface is
// preserved so the session Manager behaves identically in both settings.
type Provider struct {
	cfg *Config

	rpc *rpcClient

	// chains maps the chain ids this provider can switch to onto their
	// registered RPC endpoints.
	chains map[uint64]string

	events    wallet.Events
	activeURL string
	mu        sync.RWMutex
}

// Compile-time check that Provider implements wallet.Provider.
var _ wallet.Provider = (*Provider)(nil)

// NewProvider creates an RPC wallet provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url required")
	}
	if (cfg.Account == common.Address{}) {
		return nil, fmt.Errorf("account required")
	}
	if cfg.PrivateKey != nil {
		derived := crypto.PubkeyToAddress(cfg.PrivateKey.PublicKey)
		if derived != cfg.Account {
			return nil, fmt.Errorf("private key derives %s, "+
				"configured account is %s", derived,
				cfg.Account)
		}
	}

	chains := make(map[uint64]string)
	for _, def := range cfg.KnownChains {
		chains[def.ChainID] = def.RPCURL
	}

	return &Provider{
		cfg:       cfg,
		rpc:       newRPCClient(cfg),
		chains:    chains,
		activeURL: cfg.RPCURL,
	}, nil
}

// RequestAccounts returns the configured account. There is no interactive
// prompt in a headless setting, so access is always granted.
func (p *Provider) RequestAccounts(
	ctx context.Context) ([]common.Address, error) {

	return []common.Address{p.cfg.Account}, nil
}

// Accounts returns the configured account.
func (p *Provider) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{p.cfg.Account}, nil
}

// ChainID returns the chain identifier of the active endpoint.
func (p *Provider) ChainID(ctx context.Context) (uint64, error) {
	var result hexutil.Big
	err := p.rpc.call(ctx, p.endpoint(), "eth_chainId", &result)
	if err != nil {
		return 0, fmt.Errorf("failed to read chain id: %w", err)
	}

	return result.ToInt().Uint64(), nil
}

// SwitchChain re-targets the provider at the registered endpoint for the
// chain. Returns wallet.ErrUnknownChain when no endpoint is registered.
func (p *Provider) SwitchChain(ctx context.Context, chainID uint64) error {
	p.mu.RLock()
	url, ok := p.chains[chainID]
	events := p.events
	p.mu.RUnlock()

	if !ok {
		return wallet.ErrUnknownChain
	}

	p.mu.Lock()
	p.activeURL = url
	p.mu.Unlock()

	log.Infof("Switched RPC endpoint to chain %d (%s)", chainID, url)

	if events.ChainChanged != nil {
		events.ChainChanged(chainID)
	}

	return nil
}

// AddChain registers a chain definition. Idempotent.
func (p *Provider) AddChain(ctx context.Context,
	def wallet.ChainDefinition) error {

	if def.RPCURL == "" {
		return fmt.Errorf("chain definition missing rpc url")
	}

	p.mu.Lock()
	p.chains[def.ChainID] = def.RPCURL
	p.mu.Unlock()

	return nil
}

// Balance returns the native-token balance of the address in wei.
func (p *Provider) Balance(ctx context.Context,
	addr common.Address) (*big.Int, error) {

	var result hexutil.Big
	err := p.rpc.call(
		ctx, p.endpoint(), "eth_getBalance", &result, addr, "latest",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	return result.ToInt(), nil
}

// SignMessage signs msg for the account with the EIP-191 personal-message
// prefix. Requires a configured private key.
func (p *Provider) SignMessage(ctx context.Context, addr common.Address,
	msg []byte) ([]byte, error) {

	if p.cfg.PrivateKey == nil {
		return nil, wallet.ErrSigningUnsupported
	}
	if addr != p.cfg.Account {
		return nil, fmt.Errorf("cannot sign for %s, provider holds "+
			"key for %s", addr, p.cfg.Account)
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s",
		len(msg), msg)
	digest := crypto.Keccak256([]byte(prefixed))

	sig, err := crypto.Sign(digest, p.cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	return sig, nil
}

// Subscribe registers event callbacks. Only chain-change events ever fire
// from a headless provider; the account set is fixed.
func (p *Provider) Subscribe(events wallet.Events) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = events
}

// Close releases provider resources.
func (p *Provider) Close() error {
	return nil
}

// endpoint returns the active RPC endpoint.
func (p *Provider) endpoint() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.activeURL
}
