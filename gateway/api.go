package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alovak/cardflow-gateway/gateway/models"
	"github.com/alovak/cardflow-gateway/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

const (
	MsgValidationFailed      = "Payment request validation failed."
	MsgProcessorUnavailable  = "Payment processor is unavailable."
	MsgProcessorHavingIssues = "Payment processor is experiencing issues."
	MsgInternalServerError   = "An unexpected error occurred."
	MsgRequestBodyUnreadable = "Request body must be a valid payment request."
)

// API is a HTTP API for the payment gateway
type API struct {
	validator *Validator
	processor *Processor
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

func NewAPI(logger *slog.Logger, validator *Validator, processor *Processor, metrics *telemetry.Metrics) *API {
	return &API{
		validator: validator,
		processor: processor,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "api")),
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/", a.createPayment)
		r.Get("/{paymentID}", a.getPayment)
	})
}

type errorResponse struct {
	Message string `json:"message"`
}

func (a *API) createPayment(w http.ResponseWriter, r *http.Request) {
	req := models.PaymentRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.reject(w, []string{MsgRequestBodyUnreadable})
		return
	}

	normalized, err := a.validator.Validate(req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			a.reject(w, verr.Errors)
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: MsgInternalServerError})
		return
	}

	payment, err := a.processor.ProcessPayment(r.Context(), normalized)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, payment)
	case errors.Is(err, ErrBankServiceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: MsgProcessorUnavailable})
	case errors.Is(err, ErrBankInternal):
		writeJSON(w, http.StatusBadGateway, errorResponse{Message: MsgProcessorHavingIssues})
	default:
		a.logger.Error("processing payment", slog.String("err", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: MsgInternalServerError})
	}
}

func (a *API) reject(w http.ResponseWriter, errs []string) {
	a.metrics.CountPayment(string(models.PaymentStatusRejected))
	writeJSON(w, http.StatusBadRequest, models.RejectedPayment{
		Status:  models.PaymentStatusRejected,
		Message: MsgValidationFailed,
		Errors:  errs,
	})
}

func (a *API) getPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	// ids are always uuids; anything else cannot exist
	parsed, err := uuid.Parse(paymentID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	paymentID = parsed.String()

	payment, found, err := a.processor.GetPayment(r.Context(), paymentID)
	if err != nil {
		a.logger.Error("finding payment", slog.String("payment_id", paymentID), slog.String("err", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: MsgInternalServerError})
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
