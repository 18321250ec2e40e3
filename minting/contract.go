package minting

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferTopic is the topic hash of the standard ERC-721 ownership-transfer
// event, Transfer(address,address,uint256). For a mint, the third indexed
// argument is the newly assigned token id.
var TransferTopic = crypto.Keccak256Hash(
	[]byte("Transfer(address,address,uint256)"),
)

// Log is one event log from a confirmed transaction receipt.
type Log struct {
	// Address is the contract that emitted the log.
	Address common.Address

	// Topics are the indexed arguments, topic 0 being the event signature.
	Topics []common.Hash

	// Data is the non-indexed payload.
	Data []byte
}

// Receipt is the confirmed receipt of a mint transaction.
type Receipt struct {
	// TxHash is the transaction hash.
	TxHash common.Hash

	// BlockNumber is the block the transaction was included in.
	BlockNumber uint64

	// Success reports whether the transaction executed successfully.
	Success bool

	// Logs are the events emitted during execution.
	Logs []Log
}

// TokenContract is the target-chain contract boundary: a deployed ERC-721
// style token with a mint entry point and the standard read accessors.
type TokenContract interface {
	// Address returns the deployed contract address.
	Address() common.Address

	// SubmitMint submits a mint transaction through the named entry point
	// and returns the transaction hash. The entry point signature is
	// method(address to, string uri).
	SubmitMint(ctx context.Context, method string, to common.Address,
		tokenURI string) (common.Hash, error)

	// WaitMined blocks until the transaction is included in a block and
	// returns its receipt.
	WaitMined(ctx context.Context, txHash common.Hash) (*Receipt, error)

	// BalanceOf returns the number of tokens owned by the address.
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)

	// TokenOfOwnerByIndex returns the owner's token at the given index.
	TokenOfOwnerByIndex(ctx context.Context, owner common.Address,
		index *big.Int) (*big.Int, error)

	// TokenURI returns the metadata reference of a token.
	TokenURI(ctx context.Context, tokenID *big.Int) (string, error)
}

// ExtractTokenID scans a confirmed receipt for the ownership-transfer event
// emitted by the given contract and returns the minted token id. It returns
// false when the receipt carries no such event.
func ExtractTokenID(receipt *Receipt,
	contract common.Address) (*big.Int, bool) {

	for _, l := range receipt.Logs {
		if l.Address != contract {
			continue
		}
		if len(l.Topics) != 4 || l.Topics[0] != TransferTopic {
			continue
		}

		// Topic 3 is the indexed tokenId argument.
		return new(big.Int).SetBytes(l.Topics[3].Bytes()), true
	}

	return nil, false
}
