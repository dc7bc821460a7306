package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"barista-ai-ordering/internal/usecase"
)

type Server struct {
	chatUC     usecase.ChatUseCase
	approvalUC usecase.ApprovalUseCase
	catalogUC  usecase.CatalogUseCase
	auth       *AuthManager
	log        *zerolog.Logger
}

func NewServer(
	chatUC usecase.ChatUseCase,
	approvalUC usecase.ApprovalUseCase,
	catalogUC usecase.CatalogUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		chatUC:     chatUC,
		approvalUC: approvalUC,
		catalogUC:  catalogUC,
		auth:       auth,
		log:        logger,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Post("/chat", s.handleChatTurn)
		r.Post("/orders/approve", s.handleApprove)
		r.Get("/orders", s.handleListOrders)
		r.Post("/sessions/{sessionID}/abandon", s.handleAbandon)
		r.Get("/catalog", s.handleCatalog)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
