package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/thvgger/igs-portal/internal/ledger"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFeeBatch applies a fee to a class or to every student.
	TaskFeeBatch = "ledger:fee_batch"
	// TaskBalanceIntegrity scans stored balances for drift.
	TaskBalanceIntegrity = "ledger:balance_integrity"
)

// FeeBatchPayload carries a fee batch and the user who requested it.
type FeeBatchPayload struct {
	Fee         ledger.NewFeeInput `json:"fee"`
	RequestedBy int64              `json:"requested_by,omitempty"`
}

// NewFeeBatchTask constructs an Asynq task for a fee batch. Batches are not
// retried automatically because rows commit independently.
func NewFeeBatchTask(payload FeeBatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFeeBatch, body, asynq.Queue(QueueDefault), asynq.MaxRetry(0)), nil
}

// BalanceIntegrityPayload carries scheduling metadata.
type BalanceIntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewBalanceIntegrityTask constructs an Asynq task for the integrity scan.
func NewBalanceIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(BalanceIntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceIntegrity, body, asynq.Queue(QueueDefault)), nil
}
