package minting

import "errors"

var (
	// ErrMintTransactionFailed is returned when no mint entry point
	// accepted the transaction, or the transaction reverted.
	ErrMintTransactionFailed = errors.New("mint transaction failed")

	// ErrTokenIDExtractionFailed is returned when a confirmed mint receipt
	// carries no ownership-transfer event. The transaction succeeded
	// financially but no token id can be reported, which is distinct from
	// a transaction failure.
	ErrTokenIDExtractionFailed = errors.New("unable to extract token id " +
		"from confirmed receipt")
)
