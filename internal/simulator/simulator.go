// Package simulator is a stand-in acquiring bank. It answers the gateway's authorization
// calls deterministically from the last digit of the card number.
package simulator

import (
	"encoding/json"
	"net/http"

	"github.com/alovak/cardflow-gateway/internal/bank"
	"github.com/alovak/cardflow-gateway/internal/cardgen"
	"github.com/alovak/cardflow-gateway/internal/expiry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Decision is what the simulated bank does with an authorization.
type Decision int

const (
	DecisionUnavailable Decision = iota
	DecisionAuthorize
	DecisionDecline
)

// Decide maps the last digit of the card number to an outcome: 0 means the bank is down,
// odd digits are authorized and even digits are declined.
func Decide(cardNumber string) Decision {
	last := cardgen.LastN(cardNumber, 1)
	if !cardgen.IsDigits(last) {
		return DecisionDecline
	}
	switch d := last[0] - '0'; {
	case d == 0:
		return DecisionUnavailable
	case d%2 == 1:
		return DecisionAuthorize
	default:
		return DecisionDecline
	}
}

// authorization mirrors bank.AuthorizationRequest with pointers so absent fields can be told apart.
type authorization struct {
	CardNumber *string `json:"card_number"`
	ExpiryDate *string `json:"expiry_date"`
	Currency   *string `json:"currency"`
	Amount     *int64  `json:"amount"`
	CVV        *string `json:"cvv"`
}

func (a authorization) complete() bool {
	return a.CardNumber != nil && *a.CardNumber != "" &&
		a.ExpiryDate != nil && *a.ExpiryDate != "" &&
		a.Currency != nil && *a.Currency != "" &&
		a.Amount != nil &&
		a.CVV != nil && *a.CVV != ""
}

type API struct {
	logger  *slog.Logger
	newCode func() string
}

func NewAPI(logger *slog.Logger) *API {
	return &API{
		logger:  logger.With(slog.String("component", "bank-simulator")),
		newCode: uuid.NewString,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Post("/payments", a.authorize)
}

type errorResponse struct {
	ErrorMessage string `json:"errorMessage"`
}

func (a *API) authorize(w http.ResponseWriter, r *http.Request) {
	req := authorization{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.complete() {
		writeJSON(w, http.StatusBadRequest, errorResponse{ErrorMessage: "Not all required properties were sent in the request"})
		return
	}
	if _, _, err := expiry.ParseBankFormat(*req.ExpiryDate); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{ErrorMessage: "expiry_date: " + err.Error()})
		return
	}

	card := cardgen.MaskPAN(*req.CardNumber)

	resp := bank.AuthorizationResponse{}
	switch Decide(*req.CardNumber) {
	case DecisionUnavailable:
		a.logger.Info("simulating outage", slog.String("card", card))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	case DecisionAuthorize:
		resp.Authorized = true
		resp.AuthorizationCode = a.newCode()
	case DecisionDecline:
		resp.Authorized = false
	}

	a.logger.Info("authorization decided",
		slog.String("card", card),
		slog.Bool("authorized", resp.Authorized),
		slog.String("currency", *req.Currency),
		slog.Int64("amount", *req.Amount),
	)

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
