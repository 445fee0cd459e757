package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/de-tools/site-report/pkg/handlers/reports"
	"github.com/de-tools/site-report/pkg/metrics"
	"github.com/de-tools/site-report/pkg/services/complaint"
	"github.com/de-tools/site-report/pkg/services/report"
	sitereportmiddleware "github.com/de-tools/site-report/pkg/server/middleware"
	"github.com/de-tools/site-report/pkg/undo"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

type WebAPI struct {
	router  *chi.Mux
	logger  *zerolog.Logger
	server  *http.Server
	tracker *undo.Tracker
	timeout time.Duration
}

type Dependencies struct {
	Reports       report.Service
	Complaints    complaint.Service
	Transcription reports.Transcriber
	Delivery      reports.Deliverer
	Tracker       *undo.Tracker
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Logger        zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func ConfigureRouter(config Config) *chi.Mux {
	deps := config.Dependencies
	h := reports.NewHandler(deps.Reports, deps.Complaints, deps.Transcription, deps.Delivery, deps.Tracker)

	router := chi.NewRouter()
	router.Use(sitereportmiddleware.Logger(&deps.Logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.Metrics.Middleware)
		h.Routes(r)
	})
	if deps.Gatherer != nil {
		router.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}
	return router
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	config.Dependencies.Logger = logger
	router := ConfigureRouter(config)

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	return &WebAPI{
		router:  router,
		logger:  &logger,
		tracker: config.Dependencies.Tracker,
		timeout: timeout,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until ctx is done or the process receives SIGINT/SIGTERM.
// Pending deletes are committed once the server stopped accepting requests.
func (w *WebAPI) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
		defer cancel()

		err := w.server.Shutdown(shutdownCtx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if w.tracker != nil {
			flushCtx := w.logger.WithContext(shutdownCtx)
			if flushErr := w.tracker.Flush(flushCtx); flushErr != nil {
				w.logger.Error().Err(flushErr).Msg("failed to commit pending deletes")
				err = errors.Join(err, flushErr)
			}
		}
		return err
	}
}
