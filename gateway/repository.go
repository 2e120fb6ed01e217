package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/alovak/cardflow-gateway/gateway/models"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

// PaymentStore keeps processed payments. Records are append-only: Add never overwrites and
// there is no update or delete. Implementations are safe for concurrent use.
type PaymentStore interface {
	Add(ctx context.Context, payment models.Payment) error
	// Get reports found=false for unknown ids; err is reserved for backend failures.
	Get(ctx context.Context, id string) (payment models.Payment, found bool, err error)
	Ping(ctx context.Context) error
	Close() error
}

// Repository is a PaymentStore kept in memory, or in Postgres when built with NewPGRepository.
type Repository struct {
	mu       sync.RWMutex
	payments map[string]models.Payment
	db       *sql.DB
}

func NewRepository() *Repository {
	return &Repository{
		payments: make(map[string]models.Payment),
	}
}

// NewPGRepository constructs a db-backed repository.
func NewPGRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InitSchema creates the payments table when missing. No-op for the memory backend.
func (r *Repository) InitSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	queries := []string{
		`CREATE SCHEMA IF NOT EXISTS gateway`,
		`CREATE TABLE IF NOT EXISTS gateway.payments (
			payment_id     UUID PRIMARY KEY,
			status         VARCHAR(16) NOT NULL,
			card_last_four INTEGER NOT NULL,
			expiry_month   INTEGER NOT NULL,
			expiry_year    INTEGER NOT NULL,
			currency       VARCHAR(3) NOT NULL,
			amount         BIGINT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, q := range queries {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (r *Repository) Add(ctx context.Context, payment models.Payment) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.payments[payment.ID]; ok {
			return fmt.Errorf("payment %s: %w", payment.ID, ErrDuplicatePayment)
		}
		r.payments[payment.ID] = payment
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gateway.payments(payment_id, status, card_last_four, expiry_month, expiry_year, currency, amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, payment.ID, string(payment.Status), payment.CardNumberLastFour, payment.ExpiryMonth, payment.ExpiryYear, payment.Currency, payment.Amount)
	if isUniqueViolation(err) {
		return fmt.Errorf("payment %s: %w", payment.ID, ErrDuplicatePayment)
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (models.Payment, bool, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		payment, ok := r.payments[id]
		return payment, ok, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return models.Payment{}, false, nil
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT payment_id, status, card_last_four, expiry_month, expiry_year, currency, amount
		FROM gateway.payments WHERE payment_id=$1
	`, id)
	var p models.Payment
	var status string
	if err := row.Scan(&p.ID, &status, &p.CardNumberLastFour, &p.ExpiryMonth, &p.ExpiryYear, &p.Currency, &p.Amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, false, nil
		}
		return models.Payment{}, false, err
	}
	p.Status = models.PaymentStatus(status)
	return p, true, nil
}

// Ping returns DB readiness
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23505" {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		return true
	}
	return false
}
