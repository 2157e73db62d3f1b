package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"nozze/internal/cache"
	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/metrics"
	"nozze/internal/middleware/ratelimit"
	"nozze/internal/middleware/security"
	"nozze/internal/middleware/trace"
	"nozze/internal/services"
	"nozze/internal/storage"
	appweb "nozze/web"
)

// Options wires the server to its dependencies. Storage and the services
// are required; everything else has a default.
type Options struct {
	Addr    string
	Storage *storage.SQLiteRepository
	Guests  *services.GuestService
	Seating *services.SeatingService
	Budget  *services.BudgetService
	Metrics *metrics.Metrics
	Logger  *log.Logger

	DashboardTTL   time.Duration
	RateLimit      ratelimit.Config
	TrustedProxies []string
}

type Server struct {
	http.Server
	templates *template.Template
	storage   *storage.SQLiteRepository
	guests    *services.GuestService
	seating   *services.SeatingService
	budget    *services.BudgetService
	metrics   *metrics.Metrics
	logger    *log.Logger

	dashboards *cache.LRUCache[int64, core.Dashboard]
	caches     *cache.Manager
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware

	startedAt    time.Time
	now          func() time.Time
	stopCaches   context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	if opts.RateLimit.Requests <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}
	ttl := opts.DashboardTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		storage:    opts.Storage,
		guests:     opts.Guests,
		seating:    opts.Seating,
		budget:     opts.Budget,
		metrics:    opts.Metrics,
		logger:     logger,
		dashboards: cache.NewLRUCache[int64, core.Dashboard](256, ttl),
		limiter:    ratelimit.NewLimiter(opts.RateLimit),
		detector:   detector,
		tracer:     trace.NewMiddleware(detector.ExtractClientIP, opts.Metrics),
		startedAt:  time.Now(),
		now:        time.Now,
	}

	s.caches = cache.NewManager(s.dashboards)
	cacheCtx, cancel := context.WithCancel(context.Background())
	s.stopCaches = cancel
	s.caches.Start(cacheCtx, time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	s.routes(mux)
	s.Handler = s.middleware(mux)
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /weddings", s.handleIndex)
	mux.HandleFunc("POST /weddings", s.handleCreateWedding)

	const w = "/weddings/{weddingID}"
	mux.HandleFunc("GET "+w, s.handleWeddingPage)
	mux.HandleFunc("GET "+w+"/dashboard", s.handleDashboard)
	mux.Handle("POST "+w+"/update", s.mutates(s.handleUpdateWedding))
	mux.Handle("POST "+w+"/delete", s.mutates(s.handleDeleteWedding))

	mux.HandleFunc("GET "+w+"/guests", s.handleListGuests)
	mux.Handle("POST "+w+"/guests", s.mutates(s.handleCreateGuest))
	mux.Handle("POST "+w+"/guests/{guestID}/update", s.mutates(s.handleUpdateGuest))
	mux.Handle("POST "+w+"/guests/{guestID}/delete", s.mutates(s.handleDeleteGuest))
	mux.Handle("POST "+w+"/guests/{guestID}/rsvp", s.mutates(s.handleSetRSVP))
	mux.Handle("POST "+w+"/guests/{guestID}/seat", s.mutates(s.handleSeatGuest))

	mux.HandleFunc("GET "+w+"/seating", s.handleSeating)
	mux.Handle("POST "+w+"/seating/tables", s.mutates(s.handleCreateTable))
	mux.Handle("POST "+w+"/seating/tables/{tableID}/update", s.mutates(s.handleUpdateTable))
	mux.Handle("POST "+w+"/seating/tables/{tableID}/delete", s.mutates(s.handleDeleteTable))
	mux.Handle("POST "+w+"/seating/auto-assign", s.mutates(s.handleAutoAssign))
	mux.Handle("POST "+w+"/seating/clear", s.mutates(s.handleClearSeating))

	mux.HandleFunc("GET "+w+"/budget", s.handleListBudget)
	mux.Handle("POST "+w+"/budget", s.mutates(s.handleCreateBudgetItem))
	mux.Handle("POST "+w+"/budget/{itemID}/update", s.mutates(s.handleUpdateBudgetItem))
	mux.Handle("POST "+w+"/budget/{itemID}/delete", s.mutates(s.handleDeleteBudgetItem))
	mux.HandleFunc("GET "+w+"/budget/{itemID}/payments", s.handleListPayments)
	mux.Handle("POST "+w+"/budget/{itemID}/payments", s.mutates(s.handleRecordPayment))

	mux.HandleFunc("GET "+w+"/vendors", s.handleListVendors)
	mux.Handle("POST "+w+"/vendors", s.mutates(s.handleCreateVendor))
	mux.Handle("POST "+w+"/vendors/{vendorID}/update", s.mutates(s.handleUpdateVendor))
	mux.Handle("POST "+w+"/vendors/{vendorID}/delete", s.mutates(s.handleDeleteVendor))

	mux.HandleFunc("GET "+w+"/tasks", s.handleListTasks)
	mux.Handle("POST "+w+"/tasks", s.mutates(s.handleCreateTask))
	mux.Handle("POST "+w+"/tasks/{taskID}/update", s.mutates(s.handleUpdateTask))
	mux.Handle("POST "+w+"/tasks/{taskID}/toggle", s.mutates(s.handleToggleTask))
	mux.Handle("POST "+w+"/tasks/{taskID}/delete", s.mutates(s.handleDeleteTask))
}

// middleware wraps the mux, outermost first: request logger, tracing,
// request id on the logger, security headers, probe detection, rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(next)
	h = s.flagSuspicious(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.FromRequest)(h)
	h = s.tracer.Middleware(h)
	return log.Middleware(s.logger)(h)
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Troppe richieste, riprova tra poco").Write(w)
}

// mutates drops the cached dashboard of the wedding in the path once the
// write handler has run.
func (s *Server) mutates(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r)
		if id, err := pathID(r, "weddingID"); err == nil {
			s.dashboards.Delete(id)
		}
	})
}

// render executes name into a buffer so a template error never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		InternalServerError("Template non disponibili").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name,
			log.FieldOperation, log.OpRender)
		InternalServerError("Errore di visualizzazione").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// partial reports whether htmx asked for a fragment rather than a page.
func partial(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Boosted") != "true"
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopCaches()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.caches.Wait()
	})
	return shutdownErr
}
