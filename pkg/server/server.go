package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/elonfeng/fabricpop/internal/store"
	"github.com/elonfeng/fabricpop/pkg/catalog"
	"github.com/elonfeng/fabricpop/pkg/igdbproxy"
	"github.com/elonfeng/fabricpop/pkg/review"
)

// Options configures the HTTP server.
type Options struct {
	Port           int
	RateLimit      float64 // requests per second, 0 disables limiting
	RateBurst      int
	AllowedOrigins string
	Builder        *review.Builder
	IGDB           *igdbproxy.Handler // nil when no Twitch credentials are configured
	Logger         *zap.Logger
}

// Server provides the HTTP API.
type Server struct {
	store   store.Store
	catalog *catalog.Catalog
	builder *review.Builder
	igdb    *igdbproxy.Handler
	limiter *rate.Limiter
	origins string
	log     *zap.Logger
	port    int
}

// New creates a new HTTP server.
func New(s store.Store, cat *catalog.Catalog, opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Builder == nil {
		opts.Builder = review.NewBuilder(nil)
	}
	if cat == nil {
		cat = catalog.New()
	}
	srv := &Server{
		store:   s,
		catalog: cat,
		builder: opts.Builder,
		igdb:    opts.IGDB,
		origins: opts.AllowedOrigins,
		log:     opts.Logger,
		port:    opts.Port,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int(opts.RateLimit)
		}
		srv.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return srv
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(s.rateLimit)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.cors)
		r.Get("/scales", s.handleScales)
		r.Get("/scales/{scale}", s.handleScale)
		r.Post("/normalize", s.handleNormalize)
		r.Post("/classify", s.handleClassify)
		r.Get("/search", s.handleSearch)
		r.Post("/reviews", s.handleCreateReview)
		r.Get("/reviews", s.handleListReviews)
		r.Get("/reviews/{id}", s.handleGetReview)
		r.Get("/reviews/{id}/compact", s.handleCompact)
		r.Get("/reviews/{id}/summary", s.handleSummary)
	})

	if s.igdb != nil {
		r.Handle(igdbproxy.PathPrefix+"*", s.igdb)
	}

	return r
}

// ListenAndServe starts the HTTP server and shuts it down when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("fabricpop server listening", zap.String("addr", httpSrv.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		s.log.Info("fabricpop server stopped")
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_ip", r.RemoteAddr),
			zap.String("request_id", chimw.GetReqID(r.Context())))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.origins != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.origins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError reports err with an optional machine-readable kind.
func writeError(w http.ResponseWriter, status int, msg, kind string) {
	body := map[string]string{"error": msg}
	if kind != "" {
		body["kind"] = kind
	}
	writeJSON(w, status, body)
}
