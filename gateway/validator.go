package gateway

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alovak/cardflow-gateway/gateway/models"
	"github.com/alovak/cardflow-gateway/internal/cardgen"
	"github.com/alovak/cardflow-gateway/internal/expiry"
	"golang.org/x/exp/slog"
)

// SupportedCurrencies lists the ISO 4217 codes the gateway accepts, in the order they are reported.
var SupportedCurrencies = []string{"EUR", "GBP", "JPY"}

const (
	MsgCardNumberRequired   = "Card number is required."
	MsgCardNumberLength     = "Card number must be between 14 and 19 characters long."
	MsgCardNumberDigitsOnly = "Card number must only contain numeric characters."
	MsgExpiryMonthRange     = "Expiry month must be between 1 and 12."
	MsgExpiryDateInFuture   = "Expiry date must be in the future."
	MsgCurrencyRequired     = "Currency is required."
	MsgCurrencyLength       = "Currency must be exactly 3 characters."
	MsgAmountPositive       = "Amount must be a positive integer representing the minor currency unit."
	MsgCVVLength            = "CVV must be 3-4 characters long."
)

// MsgCurrencyInvalid is reported when a 3 letter code is not supported.
var MsgCurrencyInvalid = fmt.Sprintf("Currency must be one of the following: %s.", strings.Join(SupportedCurrencies, ", "))

// Validator checks and normalizes incoming payment requests.
type Validator struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewValidator returns a validator; now defaults to time.Now and is overridable for tests.
func NewValidator(logger *slog.Logger, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{
		logger: logger.With(slog.String("component", "validator")),
		now:    now,
	}
}

// Validate returns the request with card number and currency trimmed, or a *ValidationError
// listing every violated rule. Rules are all evaluated; only checks on the same field that
// depend on an earlier check of that field are skipped.
func (v *Validator) Validate(req models.PaymentRequest) (models.PaymentRequest, error) {
	req.CardNumber = strings.TrimSpace(req.CardNumber)
	req.Currency = strings.TrimSpace(req.Currency)

	var errs []string

	if req.CardNumber == "" {
		errs = append(errs, MsgCardNumberRequired)
	} else {
		if n := utf8.RuneCountInString(req.CardNumber); n < 14 || n > 19 {
			errs = append(errs, MsgCardNumberLength)
		}
		if !cardgen.IsDigits(req.CardNumber) {
			errs = append(errs, MsgCardNumberDigitsOnly)
		}
	}

	if !expiry.ValidMonth(req.ExpiryMonth) {
		errs = append(errs, MsgExpiryMonthRange)
	}

	// independent of the month range check above
	if expiry.InPast(req.ExpiryMonth, req.ExpiryYear, v.now()) {
		errs = append(errs, MsgExpiryDateInFuture)
	}

	switch {
	case req.Currency == "":
		errs = append(errs, MsgCurrencyRequired)
	case utf8.RuneCountInString(req.Currency) != 3:
		errs = append(errs, MsgCurrencyLength)
	case !supportedCurrency(req.Currency):
		errs = append(errs, MsgCurrencyInvalid)
	}

	if req.Amount <= 0 {
		errs = append(errs, MsgAmountPositive)
	}

	if n := cvvLength(req.CVV); n < 3 || n > 4 {
		errs = append(errs, MsgCVVLength)
	}

	if len(errs) > 0 {
		v.logger.Warn("validation failed with errors: " + strings.Join(errs, ", "))
		return models.PaymentRequest{}, &ValidationError{Errors: errs}
	}

	return req, nil
}

func supportedCurrency(code string) bool {
	for _, c := range SupportedCurrencies {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// cvvLength counts the decimal digits of a CVV; negative values never qualify.
func cvvLength(cvv int) int {
	if cvv < 0 {
		return 0
	}
	return len(strconv.Itoa(cvv))
}
