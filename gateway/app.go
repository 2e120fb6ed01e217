package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alovak/cardflow-gateway/internal/bank"
	"github.com/alovak/cardflow-gateway/internal/events"
	"github.com/alovak/cardflow-gateway/internal/middleware"
	"github.com/alovak/cardflow-gateway/internal/telemetry"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/exp/slog"
)

// App is the main application, it contains all the components of the gateway
// and is responsible for starting and stopping them.
type App struct {
	srv       *http.Server
	wg        *sync.WaitGroup
	Addr      string
	logger    *slog.Logger
	config    *Config
	store     PaymentStore
	publisher events.Publisher
	shutdown  func(context.Context) error
}

func NewApp(logger *slog.Logger, config *Config) *App {
	logger = logger.With(slog.String("app", "gateway"))

	if config == nil {
		config = DefaultConfig()
	}

	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger,
		config: config,
	}
}

func (a *App) Start() error {
	a.logger.Info("starting app...")

	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	shutdownTracing, err := telemetry.InitTracing(context.Background(), "payment-gateway", a.config.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	a.shutdown = shutdownTracing

	store, err := a.openStore()
	if err != nil {
		return err
	}
	a.store = store

	var metrics *telemetry.Metrics
	registry := prometheus.NewRegistry()
	if a.config.Telemetry.MetricsEnabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err = telemetry.NewMetrics(registry)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
	}

	client, err := bank.New(a.config.Bank.BaseURL, &http.Client{Timeout: a.config.Bank.Timeout})
	if err != nil {
		return fmt.Errorf("creating bank client: %w", err)
	}
	authorizer := bank.NewRetrying(client, a.config.RetryPolicy().NewBackOff, a.logger, metrics)

	if a.config.Kafka.Brokers != "" {
		a.publisher = events.NewKafkaPublisher(a.config.Kafka.Brokers, a.config.Kafka.Topic)
	}

	processor := NewProcessor(a.logger, authorizer, store, a.publisher, metrics)
	validator := NewValidator(a.logger, nil)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.NewStructuredLogger(a.logger))
	router.Use(chimiddleware.Recoverer)

	api := NewAPI(a.logger, validator, processor, metrics)
	api.AppendRoutes(router)

	router.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	router.Get("/-/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	l, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()

	a.srv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.wg.Add(1)
	go func() {
		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("starting http server", "err", err)
			}

			a.logger.Info("http server stopped")
		}

		a.wg.Done()
	}()

	return nil
}

func (a *App) openStore() (PaymentStore, error) {
	switch a.config.Store.Backend {
	case StorePostgres:
		db, err := sql.Open("postgres", a.config.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxIdleConns(5)
		db.SetMaxOpenConns(10)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		repo := NewPGRepository(db)
		if err := repo.InitSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return repo, nil
	case StoreRedis:
		repo := NewRedisRepository(redis.NewClient(&redis.Options{Addr: a.config.Store.RedisAddr}))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Ping(ctx); err != nil {
			repo.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return repo, nil
	default:
		return NewRepository(), nil
	}
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.srv != nil {
		a.srv.Shutdown(ctx)
	}

	a.wg.Wait()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("closing event publisher", "err", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("closing store", "err", err)
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			a.logger.Error("stopping tracing", "err", err)
		}
	}

	a.logger.Info("app stopped")
}
