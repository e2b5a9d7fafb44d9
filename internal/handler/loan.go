package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-tracker/internal/domain"
	customError "github.com/segyhp/loan-tracker/pkg/errors"
	"github.com/segyhp/loan-tracker/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LoanService is what the HTTP layer needs from the loan core
type LoanService interface {
	Location() *time.Location
	CreateLoan(ctx context.Context, userID string, input domain.LoanInput) (*domain.Loan, error)
	GetLoan(ctx context.Context, userID string, loanID uuid.UUID) (*domain.Loan, error)
	UpdateLoan(ctx context.Context, userID string, loanID uuid.UUID, input domain.LoanInput) (*domain.Loan, error)
	DeleteLoan(ctx context.Context, userID string, loanID uuid.UUID) error
	ListLoans(ctx context.Context, userID string) (*domain.ListLoansResponse, error)
	MakePayment(ctx context.Context, userID string, loanID uuid.UUID, amount decimal.Decimal) (*domain.PaymentResult, error)
	ListPayments(ctx context.Context, userID string, loanID uuid.UUID) ([]*domain.Payment, error)
	GetStatistics(ctx context.Context, userID string) (*domain.StatisticsResponse, error)
	SweepOverdue(ctx context.Context) (int64, error)
	RunGlobalReminderSweep(ctx context.Context) (int, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewLoanHandler(service LoanService, logger zerolog.Logger) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: NewValidator(),
		logger:    logger.With().Str("component", "loan_handler").Logger(),
	}
}

// NewValidator returns a validator that understands decimal amounts
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	input, err := req.ToInput(h.service.Location())
	if err != nil {
		response.BadRequest(w, "payment_due_date must be a date in YYYY-MM-DD format", err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), UserIDFromContext(r.Context()), input)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, loan)
}

// ListLoans handles GET /loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListLoans(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, result)
}

// GetLoan handles GET /loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFromPath(w, r)
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(r.Context(), UserIDFromContext(r.Context()), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// UpdateLoan handles PUT /loans/{loanId}
func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFromPath(w, r)
	if !ok {
		return
	}

	var req domain.UpdateLoanRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	input, err := req.ToInput(h.service.Location())
	if err != nil {
		response.BadRequest(w, "payment_due_date must be a date in YYYY-MM-DD format", err)
		return
	}

	loan, err := h.service.UpdateLoan(r.Context(), UserIDFromContext(r.Context()), loanID, input)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// DeleteLoan handles DELETE /loans/{loanId}
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteLoan(r.Context(), UserIDFromContext(r.Context()), loanID); err != nil {
		h.writeError(w, err)
		return
	}

	response.WithMessage(w, http.StatusOK, "loan deleted", nil)
}

// MakePayment handles POST /loans/{loanId}/payment
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFromPath(w, r)
	if !ok {
		return
	}

	var req domain.MakePaymentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.MakePayment(r.Context(), UserIDFromContext(r.Context()), loanID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.WithMessage(w, http.StatusOK, result.Message, result)
}

// ListPayments handles GET /loans/{loanId}/payments
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFromPath(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), UserIDFromContext(r.Context()), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, payments)
}

// GetStatistics handles GET /loans/statistics
func (h *LoanHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStatistics(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, stats)
}

// RunReminders handles POST /admin/reminders/run
func (h *LoanHandler) RunReminders(w http.ResponseWriter, r *http.Request) {
	sent, err := h.service.RunGlobalReminderSweep(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.ReminderRunResponse{Sent: sent})
}

// SweepOverdue handles POST /admin/overdue/sweep
func (h *LoanHandler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.SweepOverdue(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.SweepResponse{Updated: updated})
}

func (h *LoanHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		response.ErrorWithCode(w, http.StatusBadRequest, customError.ErrCodeValidation, validationMessage(err), nil)
		return false
	}

	return true
}

// writeError maps core errors onto HTTP statuses
func (h *LoanHandler) writeError(w http.ResponseWriter, err error) {
	code := customError.Code(err)
	message := err.Error()
	var be *customError.BusinessError
	if errors.As(err, &be) {
		message = be.Message
	}

	switch {
	case errors.Is(err, customError.ErrValidation):
		response.ErrorWithCode(w, http.StatusBadRequest, code, message, nil)
	case errors.Is(err, customError.ErrLoanNotFound):
		response.ErrorWithCode(w, http.StatusNotFound, code, message, nil)
	case errors.Is(err, customError.ErrLoanAlreadyCompleted):
		response.ErrorWithCode(w, http.StatusConflict, code, "this loan has already been completed", nil)
	default:
		h.logger.Error().Err(err).Msg("Request failed")
		response.ErrorWithCode(w, http.StatusInternalServerError, code, "Internal server error", nil)
	}
}

func loanIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.ErrorWithCode(w, http.StatusBadRequest, customError.ErrCodeValidation, "loanId must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return loanID, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}
