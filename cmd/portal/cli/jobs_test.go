package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/thvgger/igs-portal/internal/ledger"
	"github.com/thvgger/igs-portal/jobs"
)

type stubEnqueuer struct {
	fees       []ledger.NewFeeInput
	integrity  int
	enqueueErr error
}

func (s *stubEnqueuer) EnqueueFeeBatch(ctx context.Context, in ledger.NewFeeInput) (string, error) {
	if s.enqueueErr != nil {
		return "", s.enqueueErr
	}
	s.fees = append(s.fees, in)
	return "task-fee", nil
}

func (s *stubEnqueuer) EnqueueBalanceIntegrity(ctx context.Context) (string, error) {
	if s.enqueueErr != nil {
		return "", s.enqueueErr
	}
	s.integrity++
	return "task-integrity", nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func runCLI(t *testing.T, c *JobsCLI, args ...string) (int, string, string) {
	t.Helper()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := Run(context.Background(), c, args, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func TestTriggerIntegrityJSON(t *testing.T) {
	enq := &stubEnqueuer{}
	code, out, errOut := runCLI(t, newJobsCLIWith(enq, nil), "trigger", "-job", jobs.TaskBalanceIntegrity, "-json")
	require.Zero(t, code, errOut)
	require.Equal(t, 1, enq.integrity)

	var res TriggerResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, TriggerResult{Job: jobs.TaskBalanceIntegrity, TaskID: "task-integrity"}, res)
}

func TestTriggerFeeBatch(t *testing.T) {
	enq := &stubEnqueuer{}
	code, out, errOut := runCLI(t, newJobsCLIWith(enq, nil),
		"trigger", "-job", jobs.TaskFeeBatch, "-name", "Bus Fee", "-amount", "7500.50", "-session", "2", "-term", "4", "-class", "10")
	require.Zero(t, code, errOut)
	require.Contains(t, out, "task-fee")
	require.Len(t, enq.fees, 1)

	fee := enq.fees[0]
	require.Equal(t, "Bus Fee", fee.Name)
	require.Equal(t, "7500.5", fee.Amount.String())
	require.Equal(t, int64(2), fee.SessionID)
	require.Equal(t, int64(4), fee.TermID)
	require.NotNil(t, fee.ClassID)
	require.Equal(t, int64(10), *fee.ClassID)
}

func TestTriggerFeeBatchRequiresFields(t *testing.T) {
	enq := &stubEnqueuer{}
	code, _, errOut := runCLI(t, newJobsCLIWith(enq, nil), "trigger", "-job", jobs.TaskFeeBatch, "-name", "Bus Fee", "-amount", "0", "-session", "2", "-term", "4")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "positive --amount")
	require.Empty(t, enq.fees)

	code, _, errOut = runCLI(t, newJobsCLIWith(enq, nil), "trigger", "-job", jobs.TaskFeeBatch, "-amount", "abc")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "invalid amount")
}

func TestTriggerUnknownJobAndEnqueueFailure(t *testing.T) {
	code, _, errOut := runCLI(t, newJobsCLIWith(&stubEnqueuer{}, nil), "trigger", "-job", "ledger:unknown")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "unsupported job")

	code, _, errOut = runCLI(t, newJobsCLIWith(&stubEnqueuer{enqueueErr: errors.New("redis down")}, nil), "trigger", "-job", jobs.TaskBalanceIntegrity)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "redis down")
}

func TestStats(t *testing.T) {
	inspector := stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3, Active: 1, Scheduled: 2, Retry: 1}}
	code, out, _ := runCLI(t, newJobsCLIWith(nil, inspector), "stats", "-json")
	require.Zero(t, code)

	var stats QueueStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 3, Active: 1, Scheduled: 2, Retry: 1}, stats)

	code, _, errOut := runCLI(t, newJobsCLIWith(nil, stubInspector{err: errors.New("no redis")}), "stats")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "no redis")
}

func TestUsage(t *testing.T) {
	code, _, errOut := runCLI(t, newJobsCLIWith(nil, nil))
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "usage")

	code, _, _ = runCLI(t, newJobsCLIWith(nil, nil), "purge")
	require.Equal(t, 2, code)
}
