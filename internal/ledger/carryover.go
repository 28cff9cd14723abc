package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// carryOverBalance walks balance records in chronological order and returns
// the student's running balance for the session identified by currentID.
//
// Only the last record of an earlier session is carried forward; earlier
// sessions are not summed. When several records belong to the current session
// the last one visited wins. Records must be ordered by session start date,
// then term start date, then id.
func carryOverBalance(records []BalanceRecord, currentID int64, currentStart time.Time) decimal.Decimal {
	if len(records) == 0 {
		return decimal.Zero
	}
	last := decimal.Zero
	total := decimal.Zero
	matched := false
	for _, rec := range records {
		switch {
		case rec.SessionID == currentID:
			total = rec.Balance.Add(last)
			matched = true
		case rec.SessionStart.Before(currentStart):
			last = rec.Balance
		}
	}
	if !matched {
		return last
	}
	return total
}
