package models

type PaymentStatus string

const (
	PaymentStatusAuthorized PaymentStatus = "Authorized"
	PaymentStatusDeclined   PaymentStatus = "Declined"
	PaymentStatusRejected   PaymentStatus = "Rejected"
)

// PaymentRequest is what a merchant submits. It only lives for the duration of one call.
type PaymentRequest struct {
	CardNumber  string `json:"card_number"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
	CVV         int    `json:"cvv"`
}

// Payment is the sanitized record kept for a processed payment: no card number beyond
// the last four digits and no CVV.
type Payment struct {
	ID                 string        `json:"id"`
	Status             PaymentStatus `json:"status"`
	CardNumberLastFour int           `json:"card_number_last_four"`
	ExpiryMonth        int           `json:"expiry_month"`
	ExpiryYear         int           `json:"expiry_year"`
	Currency           string        `json:"currency"`
	Amount             int64         `json:"amount"`
}

// RejectedPayment is the body returned when a request fails validation.
type RejectedPayment struct {
	Status  PaymentStatus `json:"status"`
	Message string        `json:"message"`
	Errors  []string      `json:"errors"`
}
