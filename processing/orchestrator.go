package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/zkresume/confidential-wallet/compute"
	"github.com/zkresume/confidential-wallet/wallet"
)

// State is the orchestrator's processing state.
type State int

const (
	// StateIdle means no task exists yet.
	StateIdle State = iota

	// StateValidating means preconditions are being checked.
	StateValidating

	// StateEncrypting means the claim is being serialized and deployed as
	// an encrypted dataset.
	StateEncrypting

	// StateComputing means a task was submitted and is being polled.
	StateComputing

	// StateCompleted means the task succeeded and the result was fetched.
	StateCompleted

	// StateError means a step failed; the task is not retried.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateEncrypting:
		return "encrypting"
	case StateComputing:
		return "computing"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state<%d>", int(s))
	}
}

// Result is the outcome of one processing request.
type Result struct {
	// TaskID is the task identifier, remote or simulated.
	TaskID string

	// ResultHash is the hex digest produced by the computation.
	ResultHash string

	// Proof is the opaque attestation produced by the computation.
	Proof string

	// Timestamp is the computation timestamp in unix milliseconds.
	Timestamp int64

	// Simulated is true when the real network could not be used and the
	// local fallback produced the result.
	Simulated bool
}

// Config holds configuration for the processing Orchestrator.
type Config struct {
	// Session is the wallet session manager.
	Session *wallet.Manager

	// Network is the confidential-compute boundary.
	Network compute.Network

	// MinStake is the minimum compute-network stake, in nano units,
	// required for real processing. Default: 0.1 RLC.
	MinStake *big.Int

	// StrictBalance makes an insufficient stake a hard failure instead of
	// falling back to the simulation path.
	StrictBalance bool

	// PollInterval is how often task status is polled.
	// Default: 10 seconds
	PollInterval time.Duration

	// PollTimeout is the overall wall-clock ceiling for polling.
	// Default: 180 seconds
	PollTimeout time.Duration

	// Clock is the time source, swappable in tests.
	Clock clock.Clock

	// OnTransition, when set, observes every state transition. It is
	// called synchronously and must not block.
	OnTransition func(state State)
}

// DefaultMinStake returns the default minimum stake (0.1 RLC in nano-RLC).
func DefaultMinStake() *big.Int {
	return big.NewInt(100_000_000)
}

// DefaultConfig returns a default orchestrator configuration on top of the
// given session manager and compute network.
func DefaultConfig(session *wallet.Manager, network compute.Network) *Config {
	return &Config{
		Session:      session,
		Network:      network,
		MinStake:     DefaultMinStake(),
		PollInterval: 10 * time.Second,
		PollTimeout:  180 * time.Second,
		Clock:        clock.NewDefaultClock(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Session == nil {
		return fmt.Errorf("session manager is required")
	}
	if c.Network == nil {
		return fmt.Errorf("compute network is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive")
	}
	return nil
}

// Orchestrator drives the end-to-end processing pipeline: validate
// preconditions, encrypt and deploy the claim, submit the task, poll until a
// terminal state, fetch and validate the result.
type Orchestrator struct {
	cfg *Config

	// simulated tracks task ids produced by the simulation path, so status
	// checks against them report completion without touching the network.
	simulated sync.Map
}

// NewOrchestrator creates a processing Orchestrator.
func NewOrchestrator(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.MinStake == nil {
		cfg.MinStake = DefaultMinStake()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}

	return &Orchestrator{cfg: cfg}, nil
}

// transition reports a state change to the configured observer.
func (o *Orchestrator) transition(state State) {
	log.Debugf("Processing state: %v", state)
	if o.cfg.OnTransition != nil {
		o.cfg.OnTransition(state)
	}
}

// Process runs one processing request to completion. Steps execute strictly
// in sequence; the context cancels the local wait at any suspension point
// (an already-submitted remote task runs to its own completion regardless).
func (o *Orchestrator) Process(ctx context.Context,
	claim Claim) (*Result, error) {

	result, err := o.process(ctx, claim)
	if err != nil {
		o.transition(StateError)
		return nil, err
	}

	o.transition(StateCompleted)
	return result, nil
}

func (o *Orchestrator) process(ctx context.Context,
	claim Claim) (*Result, error) {

	// Run under the session's invalidation context: a chain change or
	// disconnect mid-flight cancels the local wait.
	ctx, cancel := o.cfg.Session.InvalidationContext(ctx)
	defer cancel()

	o.transition(StateValidating)

	if err := claim.Validate(); err != nil {
		return nil, fmt.Errorf("invalid claim: %w", err)
	}

	session := o.cfg.Session.GetSession()
	if !session.Connected {
		return nil, wallet.ErrNotConnected
	}

	payload, err := sealClaim(claim, o.cfg.Clock.Now())
	if err != nil {
		return nil, err
	}

	// Check the compute-network stake. A balance shortfall falls back to
	// the simulation path unless strict mode is on; a transport failure
	// while checking is treated the same as a shortfall, since real
	// processing evidently cannot proceed.
	funded, err := o.checkStake(ctx, session.Address)
	if err != nil {
		return nil, err
	}
	if !funded {
		if o.cfg.StrictBalance {
			return nil, fmt.Errorf("%w: need at least %s nano",
				ErrInsufficientBalance, o.cfg.MinStake)
		}

		log.Infof("Stake below minimum, using simulation path")
		return o.simulate(ctx, payload)
	}

	o.transition(StateEncrypting)

	datasetName := fmt.Sprintf("zkresume-claim-%d",
		o.cfg.Clock.Now().UnixMilli())
	datasetRef, err := o.cfg.Network.EncryptAndDeploy(
		ctx, payload, datasetName,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetCreationFailed, err)
	}

	o.transition(StateComputing)

	taskID, err := o.cfg.Network.SubmitTask(
		ctx, compute.DefaultOrder(datasetRef),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTaskSubmissionFailed, err)
	}

	log.Infof("Task %s submitted, polling every %v (ceiling %v)", taskID,
		o.cfg.PollInterval, o.cfg.PollTimeout)

	if err := o.waitForCompletion(ctx, taskID); err != nil {
		return nil, err
	}

	return o.fetchResult(ctx, taskID)
}

// checkStake reports whether the account's compute-network stake meets the
// configured minimum. A transport failure reports unfunded rather than
// erroring, because real processing cannot proceed either way.
func (o *Orchestrator) checkStake(ctx context.Context,
	addr string) (bool, error) {

	if err := ctx.Err(); err != nil {
		return false, err
	}

	stake, err := o.cfg.Network.CheckBalance(ctx, addr)
	if err != nil {
		log.Warnf("Unable to check compute-network stake: %v", err)
		return false, nil
	}

	return stake.Cmp(o.cfg.MinStake) >= 0, nil
}

// waitForCompletion polls task status until a terminal state, the context is
// cancelled, or the overall ceiling elapses. Transient status failures are
// absorbed; only the ceiling escalates them.
func (o *Orchestrator) waitForCompletion(ctx context.Context,
	taskID string) error {

	deadline := o.cfg.Clock.Now().Add(o.cfg.PollTimeout)

	for {
		status := o.checkStatus(ctx, taskID)
		switch status {
		case compute.StatusCompleted:
			return nil

		case compute.StatusFailed:
			return fmt.Errorf("%w: task %s reported %v",
				ErrTaskFailed, taskID, status)
		}

		if !o.cfg.Clock.Now().Before(deadline) {
			return fmt.Errorf("%w: task %s still %v after %v",
				ErrTaskTimeout, taskID, status,
				o.cfg.PollTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-o.cfg.Clock.TickAfter(o.cfg.PollInterval):
		}
	}
}

// checkStatus returns the remote status of a task, mapping any transport
// failure to StatusUnknown so polling loops never crash on a blip. Simulated
// task ids report completion without touching the network.
func (o *Orchestrator) checkStatus(ctx context.Context,
	taskID string) compute.Status {

	if _, ok := o.simulated.Load(taskID); ok {
		return compute.StatusCompleted
	}

	status, err := o.cfg.Network.TaskStatus(ctx, taskID)
	if err != nil {
		log.Debugf("Transient status failure for task %s: %v", taskID,
			err)
		return compute.StatusUnknown
	}

	return status
}

// CheckStatus is the idempotent, side-effect-free status probe exposed to
// callers that poll outside a Process invocation.
func (o *Orchestrator) CheckStatus(ctx context.Context,
	taskID string) compute.Status {

	return o.checkStatus(ctx, taskID)
}

// resultPayload is the decoded terminal-success payload.
type resultPayload struct {
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"`
	Proof     string `json:"proof"`
}

// fetchResult downloads and decodes the result of a completed task. A
// payload without a hash is a fatal decode error, not a silent default.
func (o *Orchestrator) fetchResult(ctx context.Context,
	taskID string) (*Result, error) {

	raw, err := o.cfg.Network.FetchResult(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result for task "+
			"%s: %w", taskID, err)
	}

	var payload resultPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResultDecodeFailed, err)
	}
	if payload.Hash == "" {
		return nil, fmt.Errorf("%w: task %s", ErrResultDecodeFailed,
			taskID)
	}

	return &Result{
		TaskID:     taskID,
		ResultHash: payload.Hash,
		Proof:      payload.Proof,
		Timestamp:  payload.Timestamp,
		Simulated:  false,
	}, nil
}

// IsTimeout reports whether an error is the polling-ceiling timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTaskTimeout)
}
