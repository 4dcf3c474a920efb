package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Pinger проверка доступности БД (pgxpool.Pool)
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsServer служебный HTTP: /healthz и /metrics
type OpsServer struct {
	server *http.Server
	logger *zap.Logger
}

func NewOpsServer(addr string, db Pinger, collector *metrics.Collector, logger *zap.Logger) *OpsServer {
	return &OpsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           NewOpsRouter(db, collector),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// NewOpsRouter собирает маршруты служебного сервера
func NewOpsRouter(db Pinger, collector *metrics.Collector) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", collector.Handler())

	return router
}

// Run слушает до отмены ctx, затем корректно останавливается
func (s *OpsServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Ops server listening", zap.String("addr", s.server.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Ops server stopped")
	return nil
}
