package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/thvgger/igs-portal/internal/platform/httpx"
	"github.com/thvgger/igs-portal/internal/rbac"
	"github.com/thvgger/igs-portal/internal/shared"
)

// IdempotencyHeader lets clients retry fee batch submissions safely.
const IdempotencyHeader = "Idempotency-Key"

const idempotencyModule = "ledger.fees"

// IdempotencyGuard rejects replayed request keys.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// FeeBatchEnqueuer schedules a fee batch for background processing.
type FeeBatchEnqueuer interface {
	EnqueueFeeBatch(ctx context.Context, in NewFeeInput) (string, error)
}

// Handler exposes the ledger over JSON.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	rbac        rbac.Middleware
	idempotency IdempotencyGuard
	enqueuer    FeeBatchEnqueuer
}

// NewHandler builds Handler instance. idempotency and enqueuer may be nil.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, idempotency IdempotencyGuard, enqueuer FeeBatchEnqueuer) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, idempotency: idempotency, enqueuer: enqueuer}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLedgerView, shared.PermLedgerViewOwn))
		r.Get("/students/{id}/balance", h.totalBalance)
		r.Get("/students/{id}/outstanding", h.outstanding)
		r.Get("/students/{id}/payments", h.listPayments)
		r.Get("/students/{id}/balances", h.listBalances)
		r.Get("/students/{id}/summary", h.summary)
		r.Get("/payments/{id}/receipt", h.receipt)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLedgerView))
		r.Get("/payments/{id}", h.getPayment)
		r.Get("/balances", h.findBalance)
		r.Get("/balances/{id}", h.getBalance)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermLedgerEdit))
		r.Post("/payments", h.createPayment)
		r.Patch("/payments/{id}", h.updatePayment)
		r.Delete("/payments/{id}", h.deletePayment)
		r.Post("/payments/{id}/confirm", h.confirmPayment)
		r.Post("/balances", h.createBalance)
		r.Put("/balances/{id}", h.updateBalance)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermFeesCreate))
		r.Post("/fees", h.createFee)
		r.Post("/fees/async", h.enqueueFee)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !shared.IsValidation(err) && !errors.Is(err, shared.ErrNotFound) {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

// studentParam reads {id} and checks the principal may see that student's ledger.
func studentParam(r *http.Request) (int64, error) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		return 0, err
	}
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		return 0, shared.ErrUnauthorized
	}
	if !p.CanViewStudent(id) {
		return 0, shared.ErrForbidden
	}
	return id, nil
}

func requiredQueryID(r *http.Request, name string) (int64, error) {
	id, err := httpx.QueryID(r, name)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, shared.NewValidationError(name, "this field is required")
	}
	return id, nil
}

// --- Student views ---

func (h *Handler) totalBalance(w http.ResponseWriter, r *http.Request) {
	studentID, err := studentParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sessionID, err := requiredQueryID(r, "session_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	total, err := h.service.GetStudentTotalBalance(r.Context(), studentID, sessionID)
	if err != nil {
		h.fail(w, r, "student total balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"student_id":    studentID,
		"session_id":    sessionID,
		"total_balance": total,
		"display":       FormatNaira(total),
	})
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	studentID, err := studentParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payments, err := h.service.ListOutstandingPayments(r.Context(), studentID)
	if err != nil {
		h.fail(w, r, "outstanding payments", err)
		return
	}
	if payments == nil {
		payments = []Payment{}
	}
	amount := sumAmounts(payments)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"student_id": studentID,
		"amount":     amount,
		"display":    FormatNaira(amount),
		"payments":   payments,
	})
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	studentID, err := studentParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := PaymentFilter{
		StudentID: studentID,
		Status:    PaymentStatus(strings.ToUpper(r.URL.Query().Get("status"))),
	}
	if filter.SessionID, err = httpx.QueryID(r, "session_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.TermID, err = httpx.QueryID(r, "term_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	payments, err := h.service.ListPaymentsByStudent(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list payments", err)
		return
	}
	if payments == nil {
		payments = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) listBalances(w http.ResponseWriter, r *http.Request) {
	studentID, err := studentParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balances, err := h.service.ListStudentBalances(r.Context(), studentID)
	if err != nil {
		h.fail(w, r, "list balances", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	studentID, err := studentParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sessionID, err := requiredQueryID(r, "session_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.StudentSummary(r.Context(), studentID, sessionID)
	if err != nil {
		h.fail(w, r, "student summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		// Only administrators learn whether a payment id exists.
		if errors.Is(err, shared.ErrNotFound) && !p.IsAdmin() {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		h.fail(w, r, "payment receipt", err)
		return
	}
	if !p.CanViewStudent(payment.StudentID) {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	receipt, err := h.service.ReceiptOf(r.Context(), payment)
	if err != nil {
		h.fail(w, r, "payment receipt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

// --- Payments ---

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var in CreatePaymentInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.BatchID = nil
	payment, err := h.service.CreatePayment(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdatePaymentInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	payment, err := h.service.UpdatePayment(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeletePayment(r.Context(), id); err != nil {
		h.fail(w, r, "delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmRequest struct {
	Method PaymentMethod `json:"method"`
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req confirmRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	payment, err := h.service.ConfirmPayment(r.Context(), id, PaymentMethod(strings.ToUpper(string(req.Method))))
	if err != nil {
		h.fail(w, r, "confirm payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

// --- Balances ---

func (h *Handler) findBalance(w http.ResponseWriter, r *http.Request) {
	var ids [3]int64
	for i, name := range []string{"student_id", "session_id", "term_id"} {
		id, err := requiredQueryID(r, name)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		ids[i] = id
	}
	balance, err := h.service.GetStudentBalance(r.Context(), ids[0], ids[1], ids[2])
	if err != nil {
		h.fail(w, r, "find balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balance, err := h.service.GetBalance(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) createBalance(w http.ResponseWriter, r *http.Request) {
	var in BalanceInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	balance, err := h.service.CreateStudentBalance(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create balance", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, balance)
}

func (h *Handler) updateBalance(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateBalanceInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	balance, err := h.service.UpdateStudentBalance(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

// --- Fee batches ---

// claimIdempotencyKey returns false when the response has already been written.
func (h *Handler) claimIdempotencyKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key == "" || h.idempotency == nil {
		return "", true
	}
	if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this fee batch was already submitted")
			return "", false
		}
		h.fail(w, r, "idempotency check", shared.StoreError("ledger: idempotency", err))
		return "", false
	}
	return key, true
}

func (h *Handler) releaseIdempotencyKey(ctx context.Context, key string) {
	if key == "" || h.idempotency == nil {
		return
	}
	if err := h.idempotency.Delete(ctx, key); err != nil {
		h.logger.Warn("release idempotency key", slog.Any("error", err))
	}
}

func (h *Handler) createFee(w http.ResponseWriter, r *http.Request) {
	var in NewFeeInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	key, ok := h.claimIdempotencyKey(w, r)
	if !ok {
		return
	}
	result, err := h.service.CreateNewFee(r.Context(), in)
	if err != nil {
		h.releaseIdempotencyKey(r.Context(), key)
		h.fail(w, r, "create fee", err)
		return
	}
	status := http.StatusCreated
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) enqueueFee(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Jobs Unavailable", "background processing is not configured")
		return
	}
	var in NewFeeInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateFee(in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	key, ok := h.claimIdempotencyKey(w, r)
	if !ok {
		return
	}
	taskID, err := h.enqueuer.EnqueueFeeBatch(r.Context(), in)
	if err != nil {
		h.releaseIdempotencyKey(r.Context(), key)
		h.fail(w, r, "enqueue fee batch", shared.StoreError("ledger: enqueue fee batch", err))
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}
