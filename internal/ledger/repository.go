package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thvgger/igs-portal/internal/platform/db"
	"github.com/thvgger/igs-portal/internal/shared"
)

// Repository provides PostgreSQL backed persistence for payments and balances.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const paymentColumns = `id, student_id, session_id, term_id, name, amount, date, method, status, batch_id, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.StudentID, &p.SessionID, &p.TermID, &p.Name, &p.Amount, &p.Date,
		&p.Method, &p.Status, &p.BatchID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectPayments(rows pgx.Rows, op string) ([]Payment, error) {
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, db.MapError(op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(op, err)
	}
	return out, nil
}

// CreatePayment inserts one payment row.
func (r *Repository) CreatePayment(ctx context.Context, in CreatePaymentInput) (Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
		INSERT INTO payments (student_id, session_id, term_id, name, amount, date, method, status, batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+paymentColumns,
		in.StudentID, in.SessionID, in.TermID, in.Name, in.Amount, in.Date, in.Method, in.Status, in.BatchID,
	))
	if err != nil {
		return Payment{}, db.MapError("ledger: create payment", err)
	}
	return p, nil
}

// GetPayment loads a payment.
func (r *Repository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return Payment{}, db.MapError("ledger: get payment", err)
	}
	return p, nil
}

// UpdatePayment applies the non-nil fields of in.
func (r *Repository) UpdatePayment(ctx context.Context, id int64, in UpdatePaymentInput) (Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
		UPDATE payments SET
			name = COALESCE($2, name),
			amount = COALESCE($3, amount),
			date = COALESCE($4, date),
			method = COALESCE($5, method),
			status = COALESCE($6, status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+paymentColumns,
		id, in.Name, in.Amount, in.Date, in.Method, in.Status,
	))
	if err != nil {
		return Payment{}, db.MapError("ledger: update payment", err)
	}
	return p, nil
}

// ConfirmPayment moves a PENDING payment to CONFIRMED. A payment that is not
// pending is reported as not found.
func (r *Repository) ConfirmPayment(ctx context.Context, id int64, method PaymentMethod) (Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
		UPDATE payments SET status = 'CONFIRMED', method = $2, date = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+paymentColumns, id, method,
	))
	if err != nil {
		return Payment{}, db.MapError("ledger: confirm payment", err)
	}
	return p, nil
}

// DeletePayment removes a payment.
func (r *Repository) DeletePayment(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return db.MapError("ledger: delete payment", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Optional filters compare against typed zero values so ids above 2^31 still bind.
const paymentFilterWhere = `
		WHERE student_id = $1
		  AND ($2::bigint = 0 OR session_id = $2)
		  AND ($3::bigint = 0 OR term_id = $3)
		  AND ($4::text = '' OR status = $4)`

// ListPayments returns a student's payments matching the filter, newest first.
func (r *Repository) ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments`+paymentFilterWhere+`
		ORDER BY date DESC, id DESC`,
		f.StudentID, f.SessionID, f.TermID, string(f.Status))
	if err != nil {
		return nil, db.MapError("ledger: list payments", err)
	}
	return collectPayments(rows, "ledger: list payments")
}

// ListBalanceRecords returns a student's balances with their session and term
// start dates, ordered chronologically.
func (r *Repository) ListBalanceRecords(ctx context.Context, studentID int64) ([]BalanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.student_id, b.session_id, b.term_id, b.total_paid, b.total_owed, b.balance, b.updated_at,
			s.start_date, t.start_date
		FROM student_balances b
		JOIN academic_sessions s ON s.id = b.session_id
		JOIN terms t ON t.id = b.term_id
		WHERE b.student_id = $1
		ORDER BY s.start_date, t.start_date, b.id`, studentID)
	if err != nil {
		return nil, db.MapError("ledger: list balance records", err)
	}
	defer rows.Close()

	var out []BalanceRecord
	for rows.Next() {
		var rec BalanceRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.SessionID, &rec.TermID, &rec.TotalPaid, &rec.TotalOwed,
			&rec.Balance, &rec.UpdatedAt, &rec.SessionStart, &rec.TermStart); err != nil {
			return nil, db.MapError("ledger: scan balance record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError("ledger: list balance records", err)
	}
	return out, nil
}

const balanceColumns = `id, student_id, session_id, term_id, total_paid, total_owed, balance, updated_at`

func scanBalance(row pgx.Row) (StudentBalance, error) {
	var b StudentBalance
	err := row.Scan(&b.ID, &b.StudentID, &b.SessionID, &b.TermID, &b.TotalPaid, &b.TotalOwed, &b.Balance, &b.UpdatedAt)
	return b, err
}

// CreateBalance inserts a balance row. The triple must be unique.
func (r *Repository) CreateBalance(ctx context.Context, b StudentBalance) (StudentBalance, error) {
	out, err := scanBalance(r.pool.QueryRow(ctx, `
		INSERT INTO student_balances (student_id, session_id, term_id, total_paid, total_owed, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+balanceColumns,
		b.StudentID, b.SessionID, b.TermID, b.TotalPaid, b.TotalOwed, b.Balance,
	))
	if err != nil {
		return StudentBalance{}, db.MapError("ledger: create balance", err)
	}
	return out, nil
}

// GetBalance loads a balance row by id.
func (r *Repository) GetBalance(ctx context.Context, id int64) (StudentBalance, error) {
	b, err := scanBalance(r.pool.QueryRow(ctx, `SELECT `+balanceColumns+` FROM student_balances WHERE id = $1`, id))
	if err != nil {
		return StudentBalance{}, db.MapError("ledger: get balance", err)
	}
	return b, nil
}

// FindBalance loads the balance row of a (student, session, term) triple.
func (r *Repository) FindBalance(ctx context.Context, studentID, sessionID, termID int64) (StudentBalance, error) {
	b, err := scanBalance(r.pool.QueryRow(ctx, `
		SELECT `+balanceColumns+` FROM student_balances
		WHERE student_id = $1 AND session_id = $2 AND term_id = $3`, studentID, sessionID, termID))
	if err != nil {
		return StudentBalance{}, db.MapError("ledger: find balance", err)
	}
	return b, nil
}

// UpdateBalance stores new totals for a balance row.
func (r *Repository) UpdateBalance(ctx context.Context, b StudentBalance) (StudentBalance, error) {
	out, err := scanBalance(r.pool.QueryRow(ctx, `
		UPDATE student_balances SET total_paid = $2, total_owed = $3, balance = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+balanceColumns,
		b.ID, b.TotalPaid, b.TotalOwed, b.Balance,
	))
	if err != nil {
		return StudentBalance{}, db.MapError("ledger: update balance", err)
	}
	return out, nil
}

// ListDriftedBalances returns rows whose stored balance differs from owed minus paid.
func (r *Repository) ListDriftedBalances(ctx context.Context) ([]StudentBalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+balanceColumns+` FROM student_balances
		WHERE balance <> total_owed - total_paid
		ORDER BY id`)
	if err != nil {
		return nil, db.MapError("ledger: list drifted balances", err)
	}
	defer rows.Close()

	var out []StudentBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, db.MapError("ledger: scan balance", err)
		}
		out = append(out, b)
	}
	return out, db.MapError("ledger: list drifted balances", rows.Err())
}
