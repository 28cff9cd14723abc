package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a payment was settled.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "CASH"
	MethodBank   PaymentMethod = "BANK"
	MethodOnline PaymentMethod = "ONLINE"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBank, MethodOnline:
		return true
	}
	return false
}

// PaymentStatus enumerates payment lifecycle states.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusConfirmed PaymentStatus = "CONFIRMED"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Payment is a fee charged to a student, PENDING until confirmed as paid.
type Payment struct {
	ID        int64           `json:"id"`
	StudentID int64           `json:"student_id"`
	SessionID int64           `json:"session_id"`
	TermID    int64           `json:"term_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Method    *PaymentMethod  `json:"method,omitempty"`
	Status    PaymentStatus   `json:"status"`
	BatchID   *uuid.UUID      `json:"batch_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StudentBalance summarises what a student owes for one term.
// Balance is TotalOwed minus TotalPaid; positive means money is owed.
type StudentBalance struct {
	ID        int64           `json:"id"`
	StudentID int64           `json:"student_id"`
	SessionID int64           `json:"session_id"`
	TermID    int64           `json:"term_id"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	TotalOwed decimal.Decimal `json:"total_owed"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BalanceRecord is a StudentBalance with the start dates used to order it.
type BalanceRecord struct {
	StudentBalance
	SessionStart time.Time
	TermStart    time.Time
}

// CreatePaymentInput records a single payment.
type CreatePaymentInput struct {
	StudentID int64           `json:"student_id" validate:"required"`
	SessionID int64           `json:"session_id" validate:"required"`
	TermID    int64           `json:"term_id" validate:"required"`
	Name      string          `json:"name" validate:"required,max=120"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Method    *PaymentMethod  `json:"method"`
	Status    PaymentStatus   `json:"status"`
	BatchID   *uuid.UUID      `json:"-"`
}

// UpdatePaymentInput edits a payment; nil fields are left unchanged.
type UpdatePaymentInput struct {
	Name   *string          `json:"name" validate:"omitempty,max=120"`
	Amount *decimal.Decimal `json:"amount"`
	Date   *time.Time       `json:"date"`
	Method *PaymentMethod   `json:"method"`
	Status *PaymentStatus   `json:"status"`
}

// PaymentFilter narrows ListPaymentsByStudent.
type PaymentFilter struct {
	StudentID int64
	SessionID int64
	TermID    int64
	Status    PaymentStatus
}

// BalanceInput creates or updates a StudentBalance. Balance is derived.
type BalanceInput struct {
	StudentID int64           `json:"student_id" validate:"required"`
	SessionID int64           `json:"session_id" validate:"required"`
	TermID    int64           `json:"term_id" validate:"required"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	TotalOwed decimal.Decimal `json:"total_owed"`
}

// UpdateBalanceInput replaces the totals of an existing balance row.
type UpdateBalanceInput struct {
	TotalPaid decimal.Decimal `json:"total_paid"`
	TotalOwed decimal.Decimal `json:"total_owed"`
}

// NewFeeInput applies a named fee to a class or to every student.
type NewFeeInput struct {
	Name      string          `json:"name" validate:"required,max=120"`
	Amount    decimal.Decimal `json:"amount"`
	SessionID int64           `json:"session_id" validate:"required"`
	TermID    int64           `json:"term_id" validate:"required"`
	ClassID   *int64          `json:"class_id,omitempty"`
}

// FeeRowFailure reports a student whose fee row could not be created.
type FeeRowFailure struct {
	StudentID int64  `json:"student_id"`
	Error     string `json:"error"`
}

// FeeBatchResult is the outcome of CreateNewFee. Created rows stay committed
// even when other rows fail.
type FeeBatchResult struct {
	BatchID   uuid.UUID       `json:"batch_id"`
	Requested int             `json:"requested"`
	Created   []Payment       `json:"created"`
	Failed    []FeeRowFailure `json:"failed"`
}

// Summary is the dashboard view of a student's ledger.
type Summary struct {
	StudentID           int64           `json:"student_id"`
	SessionID           int64           `json:"session_id"`
	TotalBalance        decimal.Decimal `json:"total_balance"`
	OutstandingAmount   decimal.Decimal `json:"outstanding_amount"`
	OutstandingPayments []Payment       `json:"outstanding_payments"`
	PaymentHistory      []Payment       `json:"payment_history"`
}

// Receipt is the printable view of a confirmed payment.
type Receipt struct {
	Payment     Payment `json:"payment"`
	Number      string  `json:"number"`
	StudentName string  `json:"student_name"`
	AdmissionNo string  `json:"admission_no"`
	ClassName   string  `json:"class_name,omitempty"`
	SessionName string  `json:"session_name"`
	TermName    string  `json:"term_name"`
	Currency    string  `json:"currency"`
	AmountText  string  `json:"amount_text"`
}

// IntegrityIssue reports a balance row whose stored balance drifted from owed minus paid.
type IntegrityIssue struct {
	BalanceID int64           `json:"balance_id"`
	StudentID int64           `json:"student_id"`
	Stored    decimal.Decimal `json:"stored"`
	Expected  decimal.Decimal `json:"expected"`
}
