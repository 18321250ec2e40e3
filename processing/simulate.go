package processing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Simulated pipeline delays, observed so the caller experience matches the
// real path in shape.
const (
	simEncryptDelay = time.Second
	simComputeDelay = 1500 * time.Millisecond
)

// simulate runs the local fallback pipeline. The result hash is a real
// SHA-256 digest over the sealed claim, so it is still verifiable as a
// function of the input, and the proof string is tagged as simulated. The
// same state transitions fire as on the real path.
func (o *Orchestrator) simulate(ctx context.Context,
	payload []byte) (*Result, error) {

	o.transition(StateEncrypting)

	if err := o.pause(ctx, simEncryptDelay); err != nil {
		return nil, err
	}

	id := uuid.New()
	taskID := "0x" + hex.EncodeToString(id[:])
	o.simulated.Store(taskID, struct{}{})

	o.transition(StateComputing)

	if err := o.pause(ctx, simComputeDelay); err != nil {
		return nil, err
	}

	digest := sha256.Sum256(payload)

	log.Infof("Simulated task %s completed", taskID)

	return &Result{
		TaskID:     taskID,
		ResultHash: "0x" + hex.EncodeToString(digest[:]),
		Proof:      fmt.Sprintf("simulated-enclave-proof-%s", taskID),
		Timestamp:  o.cfg.Clock.Now().UnixMilli(),
		Simulated:  true,
	}, nil
}

// pause waits for the given duration on the injected clock, honoring
// cancellation.
func (o *Orchestrator) pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()

	case <-o.cfg.Clock.TickAfter(d):
		return nil
	}
}
