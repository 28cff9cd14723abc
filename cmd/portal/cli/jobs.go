package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"

	"github.com/thvgger/igs-portal/internal/ledger"
	"github.com/thvgger/igs-portal/jobs"
)

// Enqueuer submits ledger jobs.
type Enqueuer interface {
	EnqueueFeeBatch(ctx context.Context, in ledger.NewFeeInput) (string, error)
	EnqueueBalanceIntegrity(ctx context.Context) (string, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	enqueuer  Enqueuer
	inspector jobs.QueueInspector
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client := jobs.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{enqueuer: client, inspector: inspector, closers: []io.Closer{client, inspector}}
}

// newJobsCLIWith builds the helpers over explicit collaborators.
func newJobsCLIWith(enqueuer Enqueuer, inspector jobs.QueueInspector) *JobsCLI {
	return &JobsCLI{enqueuer: enqueuer, inspector: inspector}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TriggerOptions defines the flags of the jobs trigger command.
type TriggerOptions struct {
	Job        string
	Fee        ledger.NewFeeInput
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// TriggerResult is printed after a job was enqueued.
type TriggerResult struct {
	Job    string `json:"job"`
	TaskID string `json:"task_id"`
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, job string, fee ledger.NewFeeInput) (string, error) {
	if c == nil || c.enqueuer == nil {
		return "", errors.New("jobs cli: client not configured")
	}
	switch job {
	case jobs.TaskBalanceIntegrity:
		return c.enqueuer.EnqueueBalanceIntegrity(ctx)
	case jobs.TaskFeeBatch:
		if fee.Name == "" || !fee.Amount.IsPositive() || fee.SessionID <= 0 || fee.TermID <= 0 {
			return "", errors.New("jobs cli: fee batch needs --name, a positive --amount, --session and --term")
		}
		return c.enqueuer.EnqueueFeeBatch(ctx, fee)
	default:
		return "", fmt.Errorf("jobs cli: unsupported job %s", job)
	}
}

// TriggerCommand runs Trigger and prints the outcome. It returns the exit code.
func (c *JobsCLI) TriggerCommand(ctx context.Context, opts TriggerOptions) int {
	stdout, stderr := outputs(opts.Stdout, opts.Stderr)
	id, err := c.Trigger(ctx, opts.Job, opts.Fee)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		return encodeJSON(stdout, stderr, "jobs trigger", TriggerResult{Job: opts.Job, TaskID: id})
	}
	_, _ = fmt.Fprintf(stdout, "enqueued %s as task %s\n", opts.Job, id)
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// StatsCommand prints queue depth. It returns the exit code.
func (c *JobsCLI) StatsCommand(jsonOutput bool, stdout, stderr io.Writer) int {
	stdout, stderr = outputs(stdout, stderr)
	stats, err := c.InspectQueue()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs stats: %v\n", err)
		return 1
	}
	if jsonOutput {
		return encodeJSON(stdout, stderr, "jobs stats", stats)
	}
	_, _ = fmt.Fprintf(stdout, "queue %s: pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	return 0
}

func outputs(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

func encodeJSON(stdout, stderr io.Writer, cmd string, v any) int {
	if err := json.NewEncoder(stdout).Encode(v); err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: encode json: %v\n", cmd, err)
		return 1
	}
	return 0
}
