package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alovak/cardflow-gateway/gateway/models"
	"github.com/alovak/cardflow-gateway/internal/bank"
	"github.com/alovak/cardflow-gateway/internal/cardgen"
	"github.com/alovak/cardflow-gateway/internal/events"
	"github.com/alovak/cardflow-gateway/internal/expiry"
	"github.com/alovak/cardflow-gateway/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slog"
)

// Processor sends validated payments to the acquiring bank and records the outcome.
type Processor struct {
	bank      bank.Authorizer
	store     PaymentStore
	publisher events.Publisher
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	newID     func() string
}

// NewProcessor wires a processor. publisher and metrics may be nil.
func NewProcessor(logger *slog.Logger, authorizer bank.Authorizer, store PaymentStore, publisher events.Publisher, metrics *telemetry.Metrics) *Processor {
	return &Processor{
		bank:      authorizer,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "processor")),
		tracer:    otel.Tracer("github.com/alovak/cardflow-gateway/gateway"),
		newID:     func() string { return uuid.New().String() },
	}
}

// ProcessPayment authorizes a request that already passed Validate. It returns the stored
// record for Authorized and Declined outcomes, ErrBankServiceUnavailable when the bank
// answered 503, and ErrBankInternal for any other bank failure or when the record cannot be
// stored. Nothing is stored on failure.
func (p *Processor) ProcessPayment(ctx context.Context, req models.PaymentRequest) (*models.Payment, error) {
	ctx, span := p.tracer.Start(ctx, "gateway.ProcessPayment", trace.WithAttributes(
		attribute.String("payment.currency", req.Currency),
		attribute.Int64("payment.amount", req.Amount),
	))
	defer span.End()

	authReq := bank.AuthorizationRequest{
		CardNumber: req.CardNumber,
		ExpiryDate: expiry.BankFormat(req.ExpiryMonth, req.ExpiryYear),
		Currency:   req.Currency,
		Amount:     req.Amount,
		CVV:        strconv.Itoa(req.CVV),
	}

	started := time.Now()
	resp, err := p.bank.Authorize(ctx, authReq)
	p.metrics.ObserveAuthorization(time.Since(started))
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: no authorization returned", bank.ErrMalformedResponse)
	}
	if err != nil {
		classified := p.classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, classified.Error())
		return nil, classified
	}

	status := models.PaymentStatusDeclined
	if resp.Authorized {
		status = models.PaymentStatusAuthorized
	}

	lastFour, err := cardgen.LastFour(req.CardNumber)
	if err != nil {
		return nil, fmt.Errorf("deriving card last four: %w", err)
	}

	payment := models.Payment{
		ID:                 p.newID(),
		Status:             status,
		CardNumberLastFour: lastFour,
		ExpiryMonth:        req.ExpiryMonth,
		ExpiryYear:         req.ExpiryYear,
		Currency:           req.Currency,
		Amount:             req.Amount,
	}

	if err := p.store.Add(ctx, payment); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storing payment")
		p.logger.Error("storing payment",
			slog.String("payment_id", payment.ID),
			slog.String("err", err.Error()),
		)
		p.metrics.CountPayment("BankInternal")
		return nil, fmt.Errorf("storing payment: %v: %w", err, ErrBankInternal)
	}

	span.SetAttributes(
		attribute.String("payment.id", payment.ID),
		attribute.String("payment.status", string(payment.Status)),
	)
	p.metrics.CountPayment(string(payment.Status))
	p.logger.Info("payment processed",
		slog.String("payment_id", payment.ID),
		slog.String("status", string(payment.Status)),
		slog.String("card", cardgen.MaskPAN(req.CardNumber)),
	)

	p.publish(ctx, payment)

	return &payment, nil
}

// GetPayment looks up a stored payment by id.
func (p *Processor) GetPayment(ctx context.Context, id string) (models.Payment, bool, error) {
	payment, found, err := p.store.Get(ctx, id)
	if err != nil {
		return models.Payment{}, false, fmt.Errorf("finding payment: %w", err)
	}
	return payment, found, nil
}

func (p *Processor) classify(err error) error {
	var se *bank.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusServiceUnavailable {
		p.logger.Error("bank service unavailable", slog.Int("status", se.StatusCode))
		p.metrics.CountPayment("BankServiceUnavailable")
		return ErrBankServiceUnavailable
	}

	p.logger.Error("bank authorization failed", slog.String("err", err.Error()))
	p.metrics.CountPayment("BankInternal")
	return ErrBankInternal
}

func (p *Processor) publish(ctx context.Context, payment models.Payment) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishPaymentRecorded(ctx, payment); err != nil {
		p.logger.Error("publishing payment event",
			slog.String("payment_id", payment.ID),
			slog.String("err", err.Error()),
		)
	}
}
