package compute

import "strings"

// Status is the enumerated remote state of a confidential-compute task.
type Status int

const (
	// StatusUnset means the compute network has not scheduled the task yet.
	StatusUnset Status = iota

	// StatusPending means the task is queued.
	StatusPending

	// StatusRunning means the task is executing inside an enclave.
	StatusRunning

	// StatusCompleted means the task finished and a result is available.
	StatusCompleted

	// StatusFailed means the task terminated without a result.
	StatusFailed

	// StatusUnknown is reported for transport failures during a status
	// check, so polling callers never crash their loop on a transient
	// network blip.
	StatusUnknown
)

// String returns the canonical wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusUnset:
		return "UNSET"
	case StatusPending:
		return "PENDING"
	case StatusRunning:
		return "RUNNING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status is a terminal remote state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus maps a wire status string onto a Status. Anything unexpected
// maps to StatusUnknown.
func ParseStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "UNSET":
		return StatusUnset
	case "PENDING", "ACTIVE":
		return StatusPending
	case "RUNNING", "REVEALING":
		return StatusRunning
	case "COMPLETED":
		return StatusCompleted
	case "FAILED", "TIMEOUT":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// TaskParams are the execution parameters attached to a task order.
type TaskParams struct {
	Args             string   `json:"iexec_args"`
	InputFiles       []string `json:"iexec_input_files"`
	ResultEncryption bool     `json:"iexec_result_encryption"`
	StorageProvider  string   `json:"iexec_result_storage_provider"`
	DeveloperLogger  bool     `json:"iexec_developer_logger"`
}

// TaskOrder describes one unit of confidential computation: which app runs
// against which encrypted dataset, on which workerpool, in which category.
type TaskOrder struct {
	App        string     `json:"app"`
	Dataset    string     `json:"dataset"`
	Workerpool string     `json:"workerpool"`
	Category   int        `json:"category"`
	Callback   string     `json:"callback"`
	Params     TaskParams `json:"params"`
}

// Gateway API response types.

type addressResponse struct {
	Address string `json:"address"`
}

type balanceResponse struct {
	// Stake is the account stake in nano units, as a decimal string.
	Stake string `json:"stake"`
}

type datasetResponse struct {
	Address string `json:"address"`
}

type submitResponse struct {
	TaskID string `json:"taskid"`
}

type statusResponse struct {
	TaskID string `json:"taskid"`
	Status string `json:"status"`
}
