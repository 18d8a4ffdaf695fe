// Package httpapi exposes the backtest and optimizer engine over HTTP: a
// /backtest endpoint that replays a single chromosome over a symbol set,
// and an /optimize endpoint that evolves one via internal/genetic.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"backtestopt/internal/client"
	"backtestopt/internal/logging"
	"backtestopt/internal/store"
)

// Server holds the dependencies every route handler needs.
type Server struct {
	client *client.Client
	logger zerolog.Logger
	store  *store.SQLiteStore
}

// NewServer constructs a Server backed by a data-feed client and, for
// persisting optimize runs and their hall of fame, a store. store may be
// nil, in which case /optimize evolves chromosomes without recording them.
func NewServer(c *client.Client, logger zerolog.Logger, s *store.SQLiteStore) *Server {
	return &Server{client: c, logger: logger, store: s}
}

// NewRouter builds the full chi.Router: CORS, health/metrics, and the
// backtest/optimize route groups.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(cors)
	r.Use(s.requestID)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/backtest", func(r chi.Router) {
		r.Post("/", s.handleBacktest)
	})
	r.Route("/optimize", func(r chi.Router) {
		r.Get("/", s.handleOptimizeInfo)
		r.Post("/", s.handleOptimize)
	})

	return r
}

// requestID assigns every request a correlation ID, returned via the
// X-Request-Id header and attached to the request-scoped logger so a
// backtest/optimize failure can be traced back through the logs.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		logger := s.logger.With().Str("request_id", id).Logger()
		ctx := logging.WithLogger(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors mirrors the permissive development CORS policy the upstream service
// applies: any origin, GET/POST/PUT/DELETE (plus OPTIONS preflight), and a
// JSON content type header.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
