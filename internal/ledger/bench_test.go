package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func benchRecords(sessions, termsPerSession int) []BalanceRecord {
	records := make([]BalanceRecord, 0, sessions*termsPerSession)
	start := time.Date(2010, 9, 1, 0, 0, 0, 0, time.UTC)
	var id int64
	for s := 0; s < sessions; s++ {
		sessionStart := start.AddDate(s, 0, 0)
		for t := 0; t < termsPerSession; t++ {
			id++
			records = append(records, BalanceRecord{
				StudentBalance: StudentBalance{ID: id, SessionID: int64(s + 1), Balance: decimal.NewFromInt(int64(1000 * (t + 1)))},
				SessionStart:   sessionStart,
				TermStart:      sessionStart.AddDate(0, 4*t, 0),
			})
		}
	}
	return records
}

func BenchmarkCarryOverBalance(b *testing.B) {
	records := benchRecords(12, 3)
	current := records[len(records)-1]
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = carryOverBalance(records, current.SessionID, current.SessionStart)
	}
}

func newBenchService(students int) *Service {
	store := newMemoryStore()
	dir := newMemoryDirectory()
	dir.addSession(1, session2024)
	dir.addTerm(1, 1, "First Term")
	for id := int64(1); id <= int64(students); id++ {
		dir.addStudent(id, 10)
	}
	return NewService(store, dir, WithFeeBatchConcurrency(DefaultFeeBatchConcurrency))
}

func BenchmarkCreateNewFee(b *testing.B) {
	svc := newBenchService(200)
	in := NewFeeInput{Name: "Bus Fee", Amount: decimal.NewFromInt(7500), SessionID: 1, TermID: 1}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.CreateNewFee(context.Background(), in); err != nil {
			b.Fatal(err)
		}
	}
}

func TestFeeBatchLatencyTarget(t *testing.T) {
	svc := newBenchService(200)
	in := NewFeeInput{Name: "Bus Fee", Amount: decimal.NewFromInt(7500), SessionID: 1, TermID: 1}

	samples := make([]time.Duration, 0, 20)
	for i := 0; i < cap(samples); i++ {
		start := time.Now()
		res, err := svc.CreateNewFee(context.Background(), in)
		samples = append(samples, time.Since(start))
		require.NoError(t, err)
		require.Len(t, res.Created, 200)
	}
	p95 := percentile95(samples)
	require.Less(t, p95, 500*time.Millisecond, "fee batch p95=%s", p95)
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[int(float64(len(sorted)-1)*0.95)]
}
