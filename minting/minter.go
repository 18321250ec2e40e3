package minting

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/zkresume/confidential-wallet/chain"
	"github.com/zkresume/confidential-wallet/wallet"
)

// State is the minter's operation state.
type State int

const (
	// StateIdle means no mint is in flight.
	StateIdle State = iota

	// StateConnecting means the wallet and target chain are being lined
	// up.
	StateConnecting

	// StateMinting means the mint transaction was submitted and is
	// awaiting confirmation.
	StateMinting

	// StateCompleted means a token id was extracted from the confirmed
	// receipt.
	StateCompleted

	// StateError means the mint failed.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateMinting:
		return "minting"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state<%d>", int(s))
	}
}

// MintMethods is the ordered list of candidate mint entry points. Deployed
// token contracts differ in which one they expose, so each is tried in
// sequence and the first success wins.
var MintMethods = []string{"safeMint", "mint"}

// Credential is a minted on-chain credential. It is created only after a
// confirmed mint transaction and never mutated.
type Credential struct {
	// TokenID is the chain-assigned token identifier, as a decimal string.
	TokenID string

	// TxHash is the mint transaction hash.
	TxHash string

	// ContractAddress is the token contract.
	ContractAddress string

	// Metadata is the credential metadata recorded at mint time.
	Metadata Metadata
}

// Config holds configuration for the Minter.
type Config struct {
	// Session is the wallet session manager.
	Session *wallet.Manager

	// Provider is the wallet provider.
	Provider wallet.Provider

	// Switcher ensures the target chain is active before minting.
	Switcher *chain.Switcher

	// Contract is the deployed token contract.
	Contract TokenContract

	// TargetChainID is the chain the contract lives on.
	// Default: the Neon EVM DevNet chain id.
	TargetChainID uint64

	// Clock is the time source for metadata timestamps, swappable in
	// tests.
	Clock clock.Clock

	// OnTransition, when set, observes every state transition.
	OnTransition func(state State)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Session == nil {
		return fmt.Errorf("session manager is required")
	}
	if c.Switcher == nil {
		return fmt.Errorf("chain switcher is required")
	}
	if c.Contract == nil {
		return fmt.Errorf("token contract is required")
	}
	return nil
}

// Minter turns a completed (or simulated) processing result into an on-chain
// token. Minting is not idempotent: two calls with identical arguments
// produce two distinct tokens and two transactions, so callers must guard
// against double-submission themselves.
type Minter struct {
	cfg *Config
}

// NewMinter creates a Minter.
func NewMinter(cfg *Config) (*Minter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.TargetChainID == 0 {
		cfg.TargetChainID = wallet.TargetChainID
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}

	return &Minter{cfg: cfg}, nil
}

// transition reports a state change to the configured observer.
func (m *Minter) transition(state State) {
	log.Debugf("Minting state: %v", state)
	if m.cfg.OnTransition != nil {
		m.cfg.OnTransition(state)
	}
}

// Mint submits a mint transaction carrying the result hash inside the
// credential metadata, waits for confirmation and extracts the assigned
// token id from the receipt's ownership-transfer event.
func (m *Minter) Mint(ctx context.Context, resultHash string,
	meta Metadata) (*Credential, error) {

	cred, err := m.mint(ctx, resultHash, meta)
	if err != nil {
		m.transition(StateError)
		return nil, err
	}

	m.transition(StateCompleted)
	return cred, nil
}

func (m *Minter) mint(ctx context.Context, resultHash string,
	meta Metadata) (*Credential, error) {

	m.transition(StateConnecting)

	if m.cfg.Provider == nil {
		return nil, wallet.ErrWalletUnavailable
	}

	session := m.cfg.Session.GetSession()
	if !session.Connected {
		return nil, wallet.ErrNotConnected
	}
	recipient := common.HexToAddress(session.Address)

	err := m.cfg.Switcher.EnsureChain(ctx, m.cfg.TargetChainID)
	if err != nil {
		return nil, err
	}

	// Bind to the session's invalidation context only now that the target
	// chain is active: the switch above fires a chain-change event on the
	// provider, and the session reset that triggers must not cancel the
	// mint that requested it. From here on a chain change or disconnect
	// is external and tears the mint down.
	ctx, cancel := m.cfg.Session.InvalidationContext(ctx)
	defer cancel()

	if !m.cfg.Session.GetSession().Connected {
		return nil, wallet.ErrNotConnected
	}

	meta.ResultHash = resultHash
	if meta.IssuedAt.IsZero() {
		meta.IssuedAt = m.cfg.Clock.Now()
	}
	tokenURI, err := meta.EncodeTokenURI()
	if err != nil {
		return nil, err
	}

	m.transition(StateMinting)

	txHash, err := m.submit(ctx, recipient, tokenURI)
	if err != nil {
		return nil, err
	}

	log.Infof("Mint transaction sent: %s", txHash)

	receipt, err := m.cfg.Contract.WaitMined(ctx, txHash)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: waiting for confirmation: %v",
			ErrMintTransactionFailed, err)
	}
	if !receipt.Success {
		return nil, fmt.Errorf("%w: transaction %s reverted",
			ErrMintTransactionFailed, txHash)
	}

	tokenID, ok := ExtractTokenID(receipt, m.cfg.Contract.Address())
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s",
			ErrTokenIDExtractionFailed, txHash)
	}

	log.Infof("Minted credential token %s in tx %s", tokenID, txHash)

	return &Credential{
		TokenID:         tokenID.String(),
		TxHash:          txHash.Hex(),
		ContractAddress: m.cfg.Contract.Address().Hex(),
		Metadata:        meta,
	}, nil
}

// submit tries each candidate mint entry point in order, stopping at the
// first that accepts the transaction.
func (m *Minter) submit(ctx context.Context, to common.Address,
	tokenURI string) (common.Hash, error) {

	var lastErr error
	for _, method := range MintMethods {
		txHash, err := m.cfg.Contract.SubmitMint(
			ctx, method, to, tokenURI,
		)
		if err == nil {
			return txHash, nil
		}

		log.Debugf("Mint entry point %s rejected: %v", method, err)
		lastErr = err

		if ctx.Err() != nil {
			return common.Hash{}, ctx.Err()
		}
	}

	return common.Hash{}, fmt.Errorf("%w: no entry point accepted "+
		"(tried %v): %v", ErrMintTransactionFailed, MintMethods,
		lastErr)
}

// OwnedCredential is one token observed on-chain for an owner.
type OwnedCredential struct {
	// TokenID is the token identifier as a decimal string.
	TokenID string

	// TokenURI is the raw metadata reference.
	TokenURI string

	// Document is the decoded metadata, nil when the URI is not a
	// self-contained data URI.
	Document *Document
}

// OwnedCredentials enumerates the tokens owned by an address, decoding any
// self-contained metadata documents.
func (m *Minter) OwnedCredentials(ctx context.Context,
	owner common.Address) ([]OwnedCredential, error) {

	balance, err := m.cfg.Contract.BalanceOf(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read token balance: %w", err)
	}

	var creds []OwnedCredential
	for i := int64(0); i < balance.Int64(); i++ {
		tokenID, err := m.cfg.Contract.TokenOfOwnerByIndex(
			ctx, owner, big.NewInt(i),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to read token at "+
				"index %d: %w", i, err)
		}

		uri, err := m.cfg.Contract.TokenURI(ctx, tokenID)
		if err != nil {
			return nil, fmt.Errorf("failed to read token URI "+
				"for %s: %w", tokenID, err)
		}

		cred := OwnedCredential{
			TokenID:  tokenID.String(),
			TokenURI: uri,
		}

		doc, ok, err := DecodeTokenURI(uri)
		if err != nil {
			log.Warnf("Undecodable metadata for token %s: %v",
				tokenID, err)
		} else if ok {
			cred.Document = doc
		}

		creds = append(creds, cred)
	}

	return creds, nil
}
