package processing

import "errors"

var (
	// ErrInsufficientBalance is returned in strict-balance mode when the
	// account stake is below the configured minimum.
	ErrInsufficientBalance = errors.New("insufficient compute-network " +
		"balance")

	// ErrDatasetCreationFailed is returned when the claim could not be
	// encrypted and deployed as a dataset.
	ErrDatasetCreationFailed = errors.New("dataset creation failed")

	// ErrTaskSubmissionFailed is returned when the task order was rejected
	// by the compute network.
	ErrTaskSubmissionFailed = errors.New("task submission failed")

	// ErrTaskFailed is returned when the remote task reached a terminal
	// failure state.
	ErrTaskFailed = errors.New("confidential task failed")

	// ErrTaskTimeout is returned when the task did not reach a terminal
	// state within the polling ceiling.
	ErrTaskTimeout = errors.New("timed out waiting for task completion")

	// ErrResultDecodeFailed is returned when a terminal-success payload is
	// missing its required result hash.
	ErrResultDecodeFailed = errors.New("result payload missing required " +
		"hash")
)
