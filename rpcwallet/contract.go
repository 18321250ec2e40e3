package rpcwallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/zkresume/confidential-wallet/minting"
	"github.com/zkresume/confidential-wallet/wallet"
)

// DefaultContractAddress is the credential token contract deployed on the
// Neon EVM DevNet.
const DefaultContractAddress = "0xc21c311b7fabeb355e8be695be0ad2e1b89b8c7b"

// tokenABI covers the mint entry points and the standard read accessors the
// minter needs. Both candidate entry points are declared; which one the
// deployed contract actually exposes is discovered at call time.
const tokenABI = `[
	{"type":"function","name":"safeMint","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"tokenURI","type":"string"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenOfOwnerByIndex","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"ownerOf","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

// ContractConfig holds configuration for the RPC token contract.
type ContractConfig struct {
	// Provider supplies the RPC transport, the account and the signing
	// key.
	Provider *Provider

	// Address is the deployed contract address.
	Address common.Address

	// GasLimit caps the mint transaction gas when estimation fails to
	// improve on it. Default: 500000.
	GasLimit uint64

	// ReceiptPollInterval is how often WaitMined polls for the receipt.
	// Default: 2 seconds
	ReceiptPollInterval time.Duration

	// ReceiptTimeout is the overall ceiling for WaitMined.
	// Default: 120 seconds
	ReceiptTimeout time.Duration

	// Clock is the time source, swappable in tests.
	Clock clock.Clock
}

// Contract implements minting.TokenContract over JSON-RPC: reads via
// eth_call, mints via signed raw transactions, confirmation via polling
// eth_getTransactionReceipt.
type Contract struct {
	cfg *ContractConfig

	abi abi.ABI
}

// Compile-time check that Contract implements minting.TokenContract.
var _ minting.TokenContract = (*Contract)(nil)

// NewContract creates an RPC-backed token contract binding.
func NewContract(cfg *ContractConfig) (*Contract, error) {
	if cfg == nil || cfg.Provider == nil {
		return nil, fmt.Errorf("provider required")
	}
	if (cfg.Address == common.Address{}) {
		cfg.Address = common.HexToAddress(DefaultContractAddress)
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = 500_000
	}
	if cfg.ReceiptPollInterval == 0 {
		cfg.ReceiptPollInterval = 2 * time.Second
	}
	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = 120 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}

	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	return &Contract{
		cfg: cfg,
		abi: parsed,
	}, nil
}

// Address returns the deployed contract address.
func (c *Contract) Address() common.Address {
	return c.cfg.Address
}

// callMsg is the eth_call / eth_estimateGas parameter object.
type callMsg struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// SubmitMint signs and broadcasts a mint transaction through the named entry
// point. Gas is estimated first, so a contract that does not expose the
// entry point rejects the call here instead of burning a transaction.
func (c *Contract) SubmitMint(ctx context.Context, method string,
	to common.Address, tokenURI string) (common.Hash, error) {

	p := c.cfg.Provider
	if p.cfg.PrivateKey == nil {
		return common.Hash{}, fmt.Errorf("minting requires a "+
			"signing key: %w", wallet.ErrSigningUnsupported)
	}

	data, err := c.abi.Pack(method, to, tokenURI)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s call: %w",
			method, err)
	}

	msg := callMsg{From: p.cfg.Account, To: c.cfg.Address, Data: data}

	// Estimation doubles as the entry-point probe.
	var gasHex hexutil.Uint64
	err = p.rpc.call(ctx, p.endpoint(), "eth_estimateGas", &gasHex, msg)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas estimation for %s "+
			"rejected: %w", method, err)
	}
	gas := uint64(gasHex)
	if gas > c.cfg.GasLimit {
		gas = c.cfg.GasLimit
	}

	var nonceHex hexutil.Uint64
	err = p.rpc.call(
		ctx, p.endpoint(), "eth_getTransactionCount", &nonceHex,
		p.cfg.Account, "pending",
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to read nonce: %w",
			err)
	}

	var gasPrice hexutil.Big
	err = p.rpc.call(ctx, p.endpoint(), "eth_gasPrice", &gasPrice)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to read gas "+
			"price: %w", err)
	}

	chainID, err := p.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    uint64(nonceHex),
		GasPrice: gasPrice.ToInt(),
		Gas:      gas,
		To:       &c.cfg.Address,
		Value:    big.NewInt(0),
		Data:     data,
	})

	signer := types.LatestSignerForChainID(
		new(big.Int).SetUint64(chainID),
	)
	signedTx, err := types.SignTx(tx, signer, p.cfg.PrivateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign mint "+
			"transaction: %w", err)
	}

	rawTx, err := signedTx.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode mint "+
			"transaction: %w", err)
	}

	var txHash common.Hash
	err = p.rpc.call(
		ctx, p.endpoint(), "eth_sendRawTransaction", &txHash,
		hexutil.Encode(rawTx),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to broadcast mint "+
			"transaction: %w", err)
	}

	return txHash, nil
}

// rpcLog is the eth_getTransactionReceipt log shape.
type rpcLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// rpcReceipt is the eth_getTransactionReceipt result shape.
type rpcReceipt struct {
	TransactionHash common.Hash     `json:"transactionHash"`
	BlockNumber     *hexutil.Big    `json:"blockNumber"`
	Status          *hexutil.Uint64 `json:"status"`
	Logs            []rpcLog        `json:"logs"`
}

// WaitMined polls for the transaction receipt until the transaction is
// included in a block, the context is cancelled, or the ceiling elapses.
func (c *Contract) WaitMined(ctx context.Context,
	txHash common.Hash) (*minting.Receipt, error) {

	p := c.cfg.Provider
	deadline := c.cfg.Clock.Now().Add(c.cfg.ReceiptTimeout)

	for {
		var receipt *rpcReceipt
		err := p.rpc.call(
			ctx, p.endpoint(), "eth_getTransactionReceipt",
			&receipt, txHash,
		)
		if err != nil {
			// Transient lookup failures keep polling.
			log.Debugf("Receipt lookup for %s failed: %v", txHash,
				err)
		} else if receipt != nil && receipt.BlockNumber != nil {
			return convertReceipt(receipt), nil
		}

		if !c.cfg.Clock.Now().Before(deadline) {
			return nil, fmt.Errorf("transaction %s not mined "+
				"within %v", txHash, c.cfg.ReceiptTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-c.cfg.Clock.TickAfter(c.cfg.ReceiptPollInterval):
		}
	}
}

func convertReceipt(r *rpcReceipt) *minting.Receipt {
	out := &minting.Receipt{
		TxHash:      r.TransactionHash,
		BlockNumber: r.BlockNumber.ToInt().Uint64(),
		Success:     r.Status != nil && uint64(*r.Status) == 1,
	}

	for _, l := range r.Logs {
		out.Logs = append(out.Logs, minting.Log{
			Address: l.Address,
			Topics:  l.Topics,
			Data:    l.Data,
		})
	}

	return out
}

// BalanceOf returns the number of tokens owned by the address.
func (c *Contract) BalanceOf(ctx context.Context,
	owner common.Address) (*big.Int, error) {

	var out *big.Int
	err := c.view(ctx, "balanceOf", &out, owner)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// TokenOfOwnerByIndex returns the owner's token at the given index.
func (c *Contract) TokenOfOwnerByIndex(ctx context.Context,
	owner common.Address, index *big.Int) (*big.Int, error) {

	var out *big.Int
	err := c.view(ctx, "tokenOfOwnerByIndex", &out, owner, index)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// TokenURI returns the metadata reference of a token.
func (c *Contract) TokenURI(ctx context.Context,
	tokenID *big.Int) (string, error) {

	var out string
	err := c.view(ctx, "tokenURI", &out, tokenID)
	if err != nil {
		return "", err
	}

	return out, nil
}

// view performs a read-only contract call and unpacks the single return
// value into out.
func (c *Contract) view(ctx context.Context, method string, out interface{},
	args ...interface{}) error {

	p := c.cfg.Provider

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	var result hexutil.Bytes
	err = p.rpc.call(
		ctx, p.endpoint(), "eth_call", &result,
		callMsg{From: p.cfg.Account, To: c.cfg.Address, Data: data},
		"latest",
	)
	if err != nil {
		return fmt.Errorf("%s call failed: %w", method, err)
	}

	results, err := c.abi.Unpack(method, result)
	if err != nil {
		return fmt.Errorf("failed to unpack %s result: %w", method,
			err)
	}
	if len(results) != 1 {
		return fmt.Errorf("unexpected %s result arity %d", method,
			len(results))
	}

	return assignResult(out, results[0])
}

// assignResult copies an unpacked ABI value into the caller's typed out
// pointer.
func assignResult(out, value interface{}) error {
	switch dst := out.(type) {
	case **big.Int:
		v, ok := value.(*big.Int)
		if !ok {
			return fmt.Errorf("expected uint256 result, got %T",
				value)
		}
		*dst = v

	case *string:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string result, got %T",
				value)
		}
		*dst = v

	case *common.Address:
		v, ok := value.(common.Address)
		if !ok {
			return fmt.Errorf("expected address result, got %T",
				value)
		}
		*dst = v

	default:
		return fmt.Errorf("unsupported result type %T", out)
	}

	return nil
}
