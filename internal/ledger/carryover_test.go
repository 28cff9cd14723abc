package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func balanceAt(id, sessionID int64, start time.Time, balance string) BalanceRecord {
	return BalanceRecord{
		StudentBalance: StudentBalance{ID: id, SessionID: sessionID, Balance: decimal.RequireFromString(balance)},
		SessionStart:   start,
		TermStart:      start,
	}
}

func TestCarryOverBalance(t *testing.T) {
	y2022 := time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)
	y2023 := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	y2024 := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		records []BalanceRecord
		current int64
		start   time.Time
		want    string
	}{
		{name: "no records", current: 3, start: y2024, want: "0"},
		{
			name:    "current only",
			records: []BalanceRecord{balanceAt(1, 3, y2024, "1200")},
			current: 3, start: y2024, want: "1200",
		},
		{
			name:    "previous plus current",
			records: []BalanceRecord{balanceAt(1, 2, y2023, "5000"), balanceAt(2, 3, y2024, "2000")},
			current: 3, start: y2024, want: "7000",
		},
		{
			name:    "previous only",
			records: []BalanceRecord{balanceAt(1, 2, y2023, "3000")},
			current: 3, start: y2024, want: "3000",
		},
		{
			name: "last prior term wins",
			records: []BalanceRecord{
				balanceAt(1, 2, y2023, "100"),
				balanceAt(2, 2, y2023.AddDate(0, 4, 0), "400"),
				balanceAt(3, 3, y2024, "50"),
			},
			current: 3, start: y2024, want: "450",
		},
		{
			name: "older sessions are not summed",
			records: []BalanceRecord{
				balanceAt(1, 1, y2022, "9000"),
				balanceAt(2, 2, y2023, "300"),
			},
			current: 3, start: y2024, want: "300",
		},
		{
			name: "last current record wins",
			records: []BalanceRecord{
				balanceAt(1, 2, y2023, "10"),
				balanceAt(2, 3, y2024, "20"),
				balanceAt(3, 3, y2024.AddDate(0, 4, 0), "35"),
			},
			current: 3, start: y2024, want: "45",
		},
		{
			name:    "credit carries as negative",
			records: []BalanceRecord{balanceAt(1, 2, y2023, "-500"), balanceAt(2, 3, y2024, "2000")},
			current: 3, start: y2024, want: "1500",
		},
		{
			name:    "only later sessions",
			records: []BalanceRecord{balanceAt(1, 4, y2024.AddDate(1, 0, 0), "800")},
			current: 3, start: y2024, want: "0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := carryOverBalance(tc.records, tc.current, tc.start)
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestFormatNaira(t *testing.T) {
	require.Equal(t, "₦50,000.00", FormatNaira(decimal.NewFromInt(50000)))
	require.Equal(t, "₦0.50", FormatNaira(decimal.RequireFromString("0.5")))
	require.Equal(t, "-₦1,250.75", FormatNaira(decimal.RequireFromString("-1250.75")))
	require.Equal(t, "₦999.00", FormatNaira(decimal.NewFromInt(999)))
	require.Equal(t, "₦100,000.01", FormatNaira(decimal.RequireFromString("100000.005")))
	require.Equal(t, "₦0.00", FormatNaira(decimal.RequireFromString("-0.001")))
}

func TestFormatNairaKeepsLargeAmountsExact(t *testing.T) {
	// 2^53 + 1 naira and change does not survive a float64 round trip.
	amount := decimal.RequireFromString("9007199254740993.37")
	require.Equal(t, "₦9,007,199,254,740,993.37", FormatNaira(amount))
}
