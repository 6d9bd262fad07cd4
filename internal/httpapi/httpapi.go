package httpapi

import (
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"craftstock/backend/internal/kiosk"
	"craftstock/backend/internal/service"
	"craftstock/backend/internal/store"
)

type Options struct {
	AllowedOrigin string
	AuthRequired  bool
}

type API struct {
	service      *service.Service
	auth         *AuthManager
	kiosk        *kiosk.Scheduler
	opts         Options
	loginLimiter *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, scheduler *kiosk.Scheduler, opts Options) *API {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	return &API{
		service:      svc,
		auth:         auth,
		kiosk:        scheduler,
		opts:         opts,
		loginLimiter: newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	mux.HandleFunc("POST /api/auth/login", a.handleLogin)

	mux.HandleFunc("GET /api/suppliers", a.requireAuth(a.handleListSuppliers))
	mux.HandleFunc("POST /api/suppliers", a.requireAuth(a.handleCreateSupplier))
	mux.HandleFunc("GET /api/suppliers/{id}", a.requireAuth(a.handleGetSupplier))
	mux.HandleFunc("PUT /api/suppliers/{id}", a.requireAuth(a.handleUpdateSupplier))
	mux.HandleFunc("DELETE /api/suppliers/{id}", a.requireAuth(a.handleDeleteSupplier))

	mux.HandleFunc("GET /api/customers", a.requireAuth(a.handleListCustomers))
	mux.HandleFunc("POST /api/customers", a.requireAuth(a.handleCreateCustomer))
	mux.HandleFunc("GET /api/customers/{id}", a.requireAuth(a.handleGetCustomer))
	mux.HandleFunc("PUT /api/customers/{id}", a.requireAuth(a.handleUpdateCustomer))
	mux.HandleFunc("DELETE /api/customers/{id}", a.requireAuth(a.handleDeleteCustomer))

	mux.HandleFunc("GET /api/materials", a.requireAuth(a.handleListMaterials))
	mux.HandleFunc("POST /api/materials", a.requireAuth(a.handleCreateMaterial))
	mux.HandleFunc("GET /api/materials/{id}", a.requireAuth(a.handleGetMaterial))
	mux.HandleFunc("PUT /api/materials/{id}", a.requireAuth(a.handleUpdateMaterial))
	mux.HandleFunc("DELETE /api/materials/{id}", a.requireAuth(a.handleDeleteMaterial))

	mux.HandleFunc("GET /api/components", a.requireAuth(a.handleListComponents))
	mux.HandleFunc("POST /api/components", a.requireAuth(a.handleCreateComponent))
	mux.HandleFunc("GET /api/components/{id}", a.requireAuth(a.handleGetComponent))
	mux.HandleFunc("PUT /api/components/{id}", a.requireAuth(a.handleUpdateComponent))
	mux.HandleFunc("DELETE /api/components/{id}", a.requireAuth(a.handleDeleteComponent))
	mux.HandleFunc("GET /api/components/{id}/cost", a.requireAuth(a.handleComponentCost))

	mux.HandleFunc("GET /api/models", a.requireAuth(a.handleListModels))
	mux.HandleFunc("POST /api/models", a.requireAuth(a.handleCreateModel))
	mux.HandleFunc("POST /api/models/recalculate-costs", a.requireAuth(a.handleRecalculateAll))
	mux.HandleFunc("GET /api/models/{id}", a.requireAuth(a.handleGetModel))
	mux.HandleFunc("PUT /api/models/{id}", a.requireAuth(a.handleUpdateModel))
	mux.HandleFunc("DELETE /api/models/{id}", a.requireAuth(a.handleDeleteModel))
	mux.HandleFunc("POST /api/models/{id}/recalculate-cost", a.requireAuth(a.handleRecalculateModel))

	mux.HandleFunc("GET /api/inventory", a.requireAuth(a.handleListInventory))
	mux.HandleFunc("POST /api/inventory", a.requireAuth(a.handleCreateInventory))
	mux.HandleFunc("GET /api/inventory/{id}", a.requireAuth(a.handleGetInventory))
	mux.HandleFunc("PUT /api/inventory/{id}", a.requireAuth(a.handleUpdateInventory))
	mux.HandleFunc("DELETE /api/inventory/{id}", a.requireAuth(a.handleDeleteInventory))

	mux.HandleFunc("GET /api/transactions", a.requireAuth(a.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", a.requireAuth(a.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", a.requireAuth(a.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", a.requireAuth(a.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", a.requireAuth(a.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transactions/{id}/status", a.requireAuth(a.handleTransactionStatus))

	mux.HandleFunc("GET /api/reports/low-stock.xlsx", a.requireAuth(a.handleLowStockReport))

	mux.HandleFunc("GET /api/kiosk/status", a.handleKioskStatus)
	mux.HandleFunc("POST /api/kiosk/reset", a.requireAuth(a.handleKioskReset))

	mux.HandleFunc("POST /api/database/reset", a.requireAuth(a.handleDatabaseReset))
	mux.HandleFunc("POST /api/test-data/init", a.requireAuth(a.handleInitTestData))

	return a.withMiddleware(mux)
}

// requireAuth rejects requests without a valid bearer token when auth is
// required. Otherwise a valid token still attaches the actor.
func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			if a.opts.AuthRequired {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}
			next(w, r)
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			if a.opts.AuthRequired {
				writeError(w, http.StatusUnauthorized, err)
				return
			}
			next(w, r)
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(p)
	s.bytes += n
	return n, err
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.opts.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		event := log.Info()
		if rec.status >= 500 {
			event = log.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("latency", time.Since(startedAt)).
			Msg("request")
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalid), errors.Is(err, store.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrConflict), errors.Is(err, kiosk.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, kiosk.ErrDisabled):
		return http.StatusForbidden
	case errors.Is(err, errInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}
