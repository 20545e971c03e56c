package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"hdb-resale/models"
	"hdb-resale/services"
	"hdb-resale/utils"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	shutdownTimeout = 10 * time.Second
)

// Options tunes the API server.
type Options struct {
	RateLimitRPS    float64
	RateLimitBurst  int
	HistoryCacheTTL time.Duration
}

// Server serves a loaded listing set as read-only JSON.
type Server struct {
	listings []*models.Listing
	report   *models.InsightReport
	history  *cache.Cache
	limiter  *rate.Limiter
	logger   *utils.Logger
	router   chi.Router
}

type listPage struct {
	Total    int               `json:"total"`
	Offset   int               `json:"offset"`
	Limit    int               `json:"limit"`
	Listings []*models.Listing `json:"listings"`
}

type historyResponse struct {
	ListingID int                        `json:"listing_id"`
	Address   string                     `json:"address"`
	History   []models.PriceHistoryPoint `json:"history"`
}

// New builds the router over listings. Insights are computed once up front
// since the set never changes while serving.
func New(listings []*models.Listing, opts Options, logger *utils.Logger) *Server {
	ttl := opts.HistoryCacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	limit := rate.Inf
	if opts.RateLimitRPS > 0 {
		limit = rate.Limit(opts.RateLimitRPS)
	}
	burst := opts.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	s := &Server{
		listings: listings,
		report:   services.NewInsightService(logger).Generate(listings),
		history:  cache.New(ttl, 2*ttl),
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.rateLimitMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/listings", s.handleListListings)
		r.Get("/listings/{id}", s.handleGetListing)
		r.Get("/listings/{id}/history", s.handleGetHistory)
		r.Get("/insights", s.handleInsights)
	})
	s.router = r
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("[server] Listening on %s (%d listings)", addr, len(s.listings))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("[server] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.Warn("[server] Rate limit exceeded: %s", r.URL.Path)
			sendJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{"status": "ok", "listings": len(s.listings)})
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		sendJSONError(w, "offset must be a non-negative integer", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(q.Get("limit"), defaultPageSize)
	if err != nil || limit <= 0 {
		sendJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	matched := services.Filter(s.listings, services.QueryFromValues(q))

	page := listPage{Total: len(matched), Offset: offset, Limit: limit, Listings: []*models.Listing{}}
	if offset < len(matched) {
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Listings = matched[offset:end]
	}
	sendJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sendJSON(w, http.StatusOK, l)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sendJSON(w, http.StatusOK, historyResponse{
		ListingID: l.ID,
		Address:   l.AddressKey(),
		History:   s.priceHistory(l),
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, s.report)
}

// priceHistory is memoised per address; every listing at the same address
// shares one series.
func (s *Server) priceHistory(l *models.Listing) []models.PriceHistoryPoint {
	key := l.AddressKey()
	if cached, found := s.history.Get(key); found {
		return cached.([]models.PriceHistoryPoint)
	}
	points := services.PriceHistory(l, s.listings)
	s.history.SetDefault(key, points)
	return points
}

// lookup resolves the {id} URL param. It writes the error response itself
// and reports false when the caller should stop.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*models.Listing, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		sendJSONError(w, "invalid listing id", http.StatusBadRequest)
		return nil, false
	}
	if id < 0 || id >= len(s.listings) {
		sendJSONError(w, "listing not found", http.StatusNotFound)
		return nil, false
	}
	return s.listings[id], true
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendJSONError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, map[string]string{"error": message})
}
