package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/thvgger/igs-portal/internal/ledger"
	"github.com/thvgger/igs-portal/internal/shared"
)

// FeeCreator runs a fee batch.
type FeeCreator interface {
	CreateNewFee(ctx context.Context, in ledger.NewFeeInput) (ledger.FeeBatchResult, error)
}

// JobObserver records job outcomes.
type JobObserver interface {
	ObserveJob(task string, err error)
}

// FeeBatchJob processes TaskFeeBatch tasks.
type FeeBatchJob struct {
	Fees    FeeCreator
	Logger  *slog.Logger
	Metrics JobObserver
}

// NewFeeBatchJob initialises the fee batch handler.
func NewFeeBatchJob(fees FeeCreator, logger *slog.Logger, metrics JobObserver) *FeeBatchJob {
	return &FeeBatchJob{Fees: fees, Logger: logger, Metrics: metrics}
}

// Handle executes a fee batch. Invalid payloads and rejected input are not retried.
func (j *FeeBatchJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Fees == nil {
		return errors.New("fee batch: handler not configured")
	}
	defer func() {
		if j.Metrics != nil {
			j.Metrics.ObserveJob(TaskFeeBatch, resultErr)
		}
	}()

	var payload FeeBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("fee batch: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.RequestedBy != 0 {
		ctx = shared.ContextWithPrincipal(ctx, shared.Principal{UserID: payload.RequestedBy, Role: shared.RoleAdmin})
	}

	logger := j.logger().With(
		slog.String("job", TaskFeeBatch),
		slog.String("fee", payload.Fee.Name),
		slog.Int64("session_id", payload.Fee.SessionID),
		slog.Int64("term_id", payload.Fee.TermID),
	)
	start := time.Now()
	result, err := j.Fees.CreateNewFee(ctx, payload.Fee)
	if err != nil {
		logger.Error("fee batch failed", slog.Any("error", err))
		if shared.IsValidation(err) || errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("fee batch: %w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	for _, f := range result.Failed {
		logger.Warn("fee row failed", slog.String("batch_id", result.BatchID.String()),
			slog.Int64("student_id", f.StudentID), slog.String("error", f.Error))
	}
	logger.Info("fee batch completed",
		slog.String("batch_id", result.BatchID.String()),
		slog.Int("requested", result.Requested),
		slog.Int("created", len(result.Created)),
		slog.Int("failed", len(result.Failed)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *FeeBatchJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
