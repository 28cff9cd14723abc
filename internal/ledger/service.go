package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/thvgger/igs-portal/internal/academics"
	"github.com/thvgger/igs-portal/internal/shared"
)

// DefaultFeeBatchConcurrency bounds concurrent inserts in CreateNewFee.
const DefaultFeeBatchConcurrency = 8

// Store defines data access methods for the ledger.
type Store interface {
	CreatePayment(ctx context.Context, in CreatePaymentInput) (Payment, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	UpdatePayment(ctx context.Context, id int64, in UpdatePaymentInput) (Payment, error)
	ConfirmPayment(ctx context.Context, id int64, method PaymentMethod) (Payment, error)
	DeletePayment(ctx context.Context, id int64) error
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)

	ListBalanceRecords(ctx context.Context, studentID int64) ([]BalanceRecord, error)
	CreateBalance(ctx context.Context, b StudentBalance) (StudentBalance, error)
	GetBalance(ctx context.Context, id int64) (StudentBalance, error)
	FindBalance(ctx context.Context, studentID, sessionID, termID int64) (StudentBalance, error)
	UpdateBalance(ctx context.Context, b StudentBalance) (StudentBalance, error)
	ListDriftedBalances(ctx context.Context) ([]StudentBalance, error)
}

// Directory is the view of academic records the ledger depends on.
type Directory interface {
	GetSession(ctx context.Context, id int64) (academics.Session, error)
	TermOfSession(ctx context.Context, sessionID, termID int64) (academics.Term, error)
	GetStudent(ctx context.Context, id int64) (academics.Student, error)
	ListStudentIDs(ctx context.Context, classID int64) ([]int64, error)
}

// Auditor records ledger mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// BatchObserver receives fee batch outcomes.
type BatchObserver interface {
	ObserveFeeBatch(created, failed int)
}

// Option customises a Service.
type Option func(*Service)

// WithAuditor records fee batches, confirmations and deletes.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.audit = a }
}

// WithBatchObserver reports fee batch outcomes.
func WithBatchObserver(o BatchObserver) Option {
	return func(s *Service) { s.observer = o }
}

// WithFeeBatchConcurrency bounds concurrent inserts in CreateNewFee.
func WithFeeBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger used for non fatal failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service implements the balance ledger.
type Service struct {
	repo        Store
	directory   Directory
	audit       Auditor
	observer    BatchObserver
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// NewService builds Service instance.
func NewService(repo Store, directory Directory, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		directory:   directory,
		logger:      slog.Default(),
		concurrency: DefaultFeeBatchConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Balance computation ---

// GetStudentTotalBalance returns the student's balance for the current session
// including the balance carried over from the latest earlier record.
func (s *Service) GetStudentTotalBalance(ctx context.Context, studentID, currentSessionID int64) (decimal.Decimal, error) {
	if _, err := s.directory.GetStudent(ctx, studentID); err != nil {
		return decimal.Zero, err
	}
	current, err := s.directory.GetSession(ctx, currentSessionID)
	if err != nil {
		return decimal.Zero, err
	}
	records, err := s.repo.ListBalanceRecords(ctx, studentID)
	if err != nil {
		return decimal.Zero, err
	}
	return carryOverBalance(records, current.ID, current.StartDate), nil
}

// ListOutstandingPayments returns the student's PENDING payments.
func (s *Service) ListOutstandingPayments(ctx context.Context, studentID int64) ([]Payment, error) {
	if _, err := s.directory.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, PaymentFilter{StudentID: studentID, Status: StatusPending})
}

// GetTotalOutstandingAmount sums the student's PENDING payments.
func (s *Service) GetTotalOutstandingAmount(ctx context.Context, studentID int64) (decimal.Decimal, error) {
	payments, err := s.ListOutstandingPayments(ctx, studentID)
	if err != nil {
		return decimal.Zero, err
	}
	return sumAmounts(payments), nil
}

func sumAmounts(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// --- Fee batches ---

// structErrors runs tag validation and returns the collected field errors so
// callers can append their own checks.
func structErrors(v any) (*shared.ValidationError, error) {
	err := shared.ValidateStruct(v)
	var ve *shared.ValidationError
	switch {
	case err == nil:
		return &shared.ValidationError{}, nil
	case errors.As(err, &ve):
		return ve, nil
	default:
		return nil, err
	}
}

func validateFee(in NewFeeInput) error {
	ve, err := structErrors(in)
	if err != nil {
		return err
	}
	if !in.Amount.IsPositive() {
		ve.Add("amount", "must be greater than 0")
	}
	if in.ClassID != nil && *in.ClassID <= 0 {
		ve.Add("class_id", "must be a positive integer")
	}
	return ve.OrNil()
}

// CreateNewFee creates one PENDING payment per student of a class, or of the
// whole school when no class is given. Rows are inserted concurrently and each
// insert commits on its own; failures are reported per student.
func (s *Service) CreateNewFee(ctx context.Context, in NewFeeInput) (FeeBatchResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateFee(in); err != nil {
		return FeeBatchResult{}, err
	}
	if _, err := s.directory.TermOfSession(ctx, in.SessionID, in.TermID); err != nil {
		return FeeBatchResult{}, err
	}
	var classID int64
	if in.ClassID != nil {
		classID = *in.ClassID
	}
	studentIDs, err := s.directory.ListStudentIDs(ctx, classID)
	if err != nil {
		return FeeBatchResult{}, err
	}

	batchID := uuid.New()
	date := s.now()
	created := make([]*Payment, len(studentIDs))
	failures := make([]error, len(studentIDs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, studentID := range studentIDs {
		i, studentID := i, studentID
		g.Go(func() error {
			p, err := s.repo.CreatePayment(ctx, CreatePaymentInput{
				StudentID: studentID,
				SessionID: in.SessionID,
				TermID:    in.TermID,
				Name:      in.Name,
				Amount:    in.Amount,
				Date:      date,
				Status:    StatusPending,
				BatchID:   &batchID,
			})
			if err != nil {
				failures[i] = err
				return nil
			}
			created[i] = &p
			return nil
		})
	}
	_ = g.Wait()

	result := FeeBatchResult{
		BatchID:   batchID,
		Requested: len(studentIDs),
		Created:   make([]Payment, 0, len(studentIDs)),
		Failed:    []FeeRowFailure{},
	}
	for i, studentID := range studentIDs {
		if failures[i] != nil {
			result.Failed = append(result.Failed, FeeRowFailure{StudentID: studentID, Error: shared.UserSafeMessage(failures[i])})
			s.logger.Warn("fee row failed", slog.String("batch_id", batchID.String()),
				slog.Int64("student_id", studentID), slog.Any("error", failures[i]))
			continue
		}
		result.Created = append(result.Created, *created[i])
	}

	if s.observer != nil {
		s.observer.ObserveFeeBatch(len(result.Created), len(result.Failed))
	}
	s.record(ctx, "fee_batch.create", "payments", batchID.String(), map[string]any{
		"name":       in.Name,
		"amount":     in.Amount.String(),
		"session_id": in.SessionID,
		"term_id":    in.TermID,
		"class_id":   classID,
		"created":    len(result.Created),
		"failed":     len(result.Failed),
	})
	return result, nil
}

// --- Payments ---

// CreatePayment records a single payment.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (Payment, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Status == "" {
		in.Status = StatusPending
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	if err := validatePayment(in); err != nil {
		return Payment{}, err
	}
	if _, err := s.directory.TermOfSession(ctx, in.SessionID, in.TermID); err != nil {
		return Payment{}, err
	}
	return s.repo.CreatePayment(ctx, in)
}

func validatePayment(in CreatePaymentInput) error {
	ve, err := structErrors(in)
	if err != nil {
		return err
	}
	if !in.Amount.IsPositive() {
		ve.Add("amount", "must be greater than 0")
	}
	if !in.Status.Valid() {
		ve.Add("status", "must be one of PENDING CONFIRMED")
	}
	if in.Method != nil && !in.Method.Valid() {
		ve.Add("method", "must be one of CASH BANK ONLINE")
	}
	if in.Status == StatusConfirmed && in.Method == nil {
		ve.Add("method", "is required for a confirmed payment")
	}
	return ve.OrNil()
}

// GetPayment returns a payment.
func (s *Service) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

// UpdatePayment edits a payment's name, amount, date, method or status.
func (s *Service) UpdatePayment(ctx context.Context, id int64, in UpdatePaymentInput) (Payment, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Payment{}, err
	}
	existing, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	ve := &shared.ValidationError{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			ve.Add("name", "this field is required")
		}
		in.Name = &name
	}
	if in.Amount != nil && !in.Amount.IsPositive() {
		ve.Add("amount", "must be greater than 0")
	}
	if in.Method != nil && !in.Method.Valid() {
		ve.Add("method", "must be one of CASH BANK ONLINE")
	}
	if in.Status != nil && !in.Status.Valid() {
		ve.Add("status", "must be one of PENDING CONFIRMED")
	}
	status := existing.Status
	if in.Status != nil {
		status = *in.Status
	}
	if status == StatusConfirmed && in.Method == nil && existing.Method == nil {
		ve.Add("method", "is required for a confirmed payment")
	}
	if err := ve.OrNil(); err != nil {
		return Payment{}, err
	}
	return s.repo.UpdatePayment(ctx, id, in)
}

// ConfirmPayment marks a PENDING payment as CONFIRMED with the given method.
func (s *Service) ConfirmPayment(ctx context.Context, id int64, method PaymentMethod) (Payment, error) {
	if !method.Valid() {
		return Payment{}, shared.NewValidationError("method", "must be one of CASH BANK ONLINE")
	}
	existing, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if existing.Status == StatusConfirmed {
		return Payment{}, shared.NewValidationError("status", "payment is already confirmed")
	}
	p, err := s.repo.ConfirmPayment(ctx, id, method)
	if err != nil {
		return Payment{}, err
	}
	s.record(ctx, "payment.confirm", "payments", strconv.FormatInt(id, 10), map[string]any{
		"student_id": p.StudentID,
		"amount":     p.Amount.String(),
		"method":     string(method),
	})
	return p, nil
}

// DeletePayment removes a payment.
func (s *Service) DeletePayment(ctx context.Context, id int64) error {
	existing, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "payment.delete", "payments", strconv.FormatInt(id, 10), map[string]any{
		"student_id": existing.StudentID,
		"amount":     existing.Amount.String(),
		"status":     string(existing.Status),
	})
	return nil
}

// ListPaymentsByStudent returns a student's payments, optionally filtered.
func (s *Service) ListPaymentsByStudent(ctx context.Context, f PaymentFilter) ([]Payment, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, shared.NewValidationError("status", "must be one of PENDING CONFIRMED")
	}
	return s.repo.ListPayments(ctx, f)
}

// --- Balances ---

func validateTotals(paid, owed decimal.Decimal) *shared.ValidationError {
	ve := &shared.ValidationError{}
	if paid.IsNegative() {
		ve.Add("total_paid", "must not be negative")
	}
	if owed.IsNegative() {
		ve.Add("total_owed", "must not be negative")
	}
	return ve
}

// CreateStudentBalance stores a balance row for a (student, session, term)
// triple. The balance is derived as owed minus paid.
func (s *Service) CreateStudentBalance(ctx context.Context, in BalanceInput) (StudentBalance, error) {
	ve, err := structErrors(in)
	if err != nil {
		return StudentBalance{}, err
	}
	ve.Fields = append(ve.Fields, validateTotals(in.TotalPaid, in.TotalOwed).Fields...)
	if err := ve.OrNil(); err != nil {
		return StudentBalance{}, err
	}
	if _, err := s.directory.TermOfSession(ctx, in.SessionID, in.TermID); err != nil {
		return StudentBalance{}, err
	}
	return s.repo.CreateBalance(ctx, StudentBalance{
		StudentID: in.StudentID,
		SessionID: in.SessionID,
		TermID:    in.TermID,
		TotalPaid: in.TotalPaid,
		TotalOwed: in.TotalOwed,
		Balance:   in.TotalOwed.Sub(in.TotalPaid),
	})
}

// GetStudentBalance returns the balance row of a (student, session, term) triple.
func (s *Service) GetStudentBalance(ctx context.Context, studentID, sessionID, termID int64) (StudentBalance, error) {
	return s.repo.FindBalance(ctx, studentID, sessionID, termID)
}

// GetBalance returns a balance row by id.
func (s *Service) GetBalance(ctx context.Context, id int64) (StudentBalance, error) {
	return s.repo.GetBalance(ctx, id)
}

// UpdateStudentBalance replaces the totals of a balance row and recomputes its balance.
func (s *Service) UpdateStudentBalance(ctx context.Context, id int64, in UpdateBalanceInput) (StudentBalance, error) {
	if err := validateTotals(in.TotalPaid, in.TotalOwed).OrNil(); err != nil {
		return StudentBalance{}, err
	}
	existing, err := s.repo.GetBalance(ctx, id)
	if err != nil {
		return StudentBalance{}, err
	}
	existing.TotalPaid = in.TotalPaid
	existing.TotalOwed = in.TotalOwed
	existing.Balance = in.TotalOwed.Sub(in.TotalPaid)
	return s.repo.UpdateBalance(ctx, existing)
}

// ListStudentBalances returns a student's balance rows in chronological order.
func (s *Service) ListStudentBalances(ctx context.Context, studentID int64) ([]StudentBalance, error) {
	records, err := s.repo.ListBalanceRecords(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]StudentBalance, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.StudentBalance)
	}
	return out, nil
}

// CheckBalanceIntegrity lists balance rows whose stored balance is not owed minus paid.
func (s *Service) CheckBalanceIntegrity(ctx context.Context) ([]IntegrityIssue, error) {
	rows, err := s.repo.ListDriftedBalances(ctx)
	if err != nil {
		return nil, err
	}
	issues := make([]IntegrityIssue, 0, len(rows))
	for _, b := range rows {
		expected := b.TotalOwed.Sub(b.TotalPaid)
		if b.Balance.Equal(expected) {
			continue
		}
		issues = append(issues, IntegrityIssue{
			BalanceID: b.ID,
			StudentID: b.StudentID,
			Stored:    b.Balance,
			Expected:  expected,
		})
	}
	return issues, nil
}

// --- Dashboard and receipts ---

// StudentSummary loads the dashboard figures of a student for a session concurrently.
func (s *Service) StudentSummary(ctx context.Context, studentID, sessionID int64) (Summary, error) {
	summary := Summary{StudentID: studentID, SessionID: sessionID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.GetStudentTotalBalance(gctx, studentID, sessionID)
		summary.TotalBalance = total
		return err
	})
	g.Go(func() error {
		pending, err := s.ListOutstandingPayments(gctx, studentID)
		summary.OutstandingPayments = pending
		return err
	})
	g.Go(func() error {
		history, err := s.repo.ListPayments(gctx, PaymentFilter{StudentID: studentID, Status: StatusConfirmed})
		summary.PaymentHistory = history
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	summary.OutstandingAmount = sumAmounts(summary.OutstandingPayments)
	if summary.OutstandingPayments == nil {
		summary.OutstandingPayments = []Payment{}
	}
	if summary.PaymentHistory == nil {
		summary.PaymentHistory = []Payment{}
	}
	return summary, nil
}

// Receipt returns the printable view of a confirmed payment.
func (s *Service) Receipt(ctx context.Context, paymentID int64) (Receipt, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return Receipt{}, err
	}
	return s.ReceiptOf(ctx, p)
}

// ReceiptOf builds the receipt of an already loaded payment.
func (s *Service) ReceiptOf(ctx context.Context, p Payment) (Receipt, error) {
	if p.Status != StatusConfirmed {
		return Receipt{}, shared.NewValidationError("status", "receipts are only issued for confirmed payments")
	}

	var (
		student academics.Student
		session academics.Session
		term    academics.Term
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		student, err = s.directory.GetStudent(gctx, p.StudentID)
		return err
	})
	g.Go(func() (err error) {
		session, err = s.directory.GetSession(gctx, p.SessionID)
		return err
	})
	g.Go(func() (err error) {
		term, err = s.directory.TermOfSession(gctx, p.SessionID, p.TermID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Receipt{}, err
	}

	return Receipt{
		Payment:     p,
		Number:      receiptNumber(p),
		StudentName: student.FullName(),
		AdmissionNo: student.AdmissionNo,
		ClassName:   student.ClassName,
		SessionName: session.Name,
		TermName:    term.Name,
		Currency:    naira.String(),
		AmountText:  FormatNaira(p.Amount),
	}, nil
}

func (s *Service) record(ctx context.Context, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	var actor int64
	if p, ok := shared.PrincipalFromContext(ctx); ok {
		actor = p.UserID
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Error("ledger audit", slog.String("action", action), slog.Any("error", err))
	}
}
