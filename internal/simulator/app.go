package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alovak/cardflow-gateway/internal/middleware"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

// App serves the simulated bank over HTTP.
type App struct {
	srv    *http.Server
	wg     *sync.WaitGroup
	Addr   string
	logger *slog.Logger
	addr   string
}

func NewApp(logger *slog.Logger, addr string) *App {
	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger.With(slog.String("app", "bank-simulator")),
		addr:   addr,
	}
}

func (a *App) Start() error {
	router := chi.NewRouter()
	router.Use(middleware.NewStructuredLogger(a.logger))
	NewAPI(a.logger).AppendRoutes(router)

	l, err := net.Listen("tcp", a.addr)
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
		defer a.wg.Done()
		a.logger.Info("http server started", slog.String("addr", a.Addr))
		if err := a.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("serving http", "err", err)
		}
	}()

	return nil
}

func (a *App) Shutdown() {
	if a.srv != nil {
		a.srv.Shutdown(context.Background())
	}
	a.wg.Wait()
	a.logger.Info("app stopped")
}
