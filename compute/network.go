package compute

import (
	"context"
	"math/big"
)

// Network is the confidential-compute boundary. Implementations submit
// encrypted datasets and tasks to the network and retrieve their results.
type Network interface {
	// Address returns the account the network operations are signed for.
	Address(ctx context.Context) (string, error)

	// CheckBalance returns the account's stake on the compute network, in
	// nano units of the native token.
	CheckBalance(ctx context.Context, addr string) (*big.Int, error)

	// EncryptAndDeploy encrypts the payload, deploys it as a dataset and
	// returns the opaque dataset reference.
	EncryptAndDeploy(ctx context.Context, payload []byte,
		name string) (string, error)

	// SubmitTask submits a task order and returns the assigned task id.
	SubmitTask(ctx context.Context, order TaskOrder) (string, error)

	// TaskStatus returns the remote status of a task. It is idempotent and
	// side-effect free.
	TaskStatus(ctx context.Context, taskID string) (Status, error)

	// FetchResult downloads the result payload of a completed task.
	FetchResult(ctx context.Context, taskID string) ([]byte, error)
}
