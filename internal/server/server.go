// Package server exposes the submission workflow as an HTML form endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/port-experimental/membership-cli/internal/ratelimit"
	"github.com/port-experimental/membership-cli/internal/submission"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxFormBytes bounds the size of a submitted form.
const maxFormBytes = 64 << 10

// Submitter runs one submission. *submission.Workflow implements it.
type Submitter interface {
	Submit(ctx context.Context, app submission.Application) submission.Outcome
}

// Options configures a Server.
type Options struct {
	Pages   submission.Pages
	Limiter *ratelimit.KeyedLimiter // nil disables throttling
	Metrics prometheus.Gatherer     // nil disables /metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// Server handles form posts and redirects the browser to the outcome page.
type Server struct {
	submitter Submitter
	pages     submission.Pages
	limiter   *ratelimit.KeyedLimiter
	metrics   prometheus.Gatherer
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Server.
func New(submitter Submitter, opts Options) *Server {
	s := &Server{
		submitter: submitter,
		pages:     opts.Pages,
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Handler returns the router with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLog)
	s.Routes(r)
	return r
}

// Routes mounts the server's routes on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/apply", s.Apply)
	r.Get("/healthz", s.Health)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
}

// Apply handles POST /apply with a form-encoded application.
func (s *Server) Apply(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	app := applicationFromForm(r)
	if !s.limiter.Allow(app.Email, s.now()) {
		s.logger.Warn("submission throttled", "request_id", chimw.GetReqID(r.Context()))
		w.Header().Set("Retry-After", "60")
		http.Error(w, "too many submissions, please try again later", http.StatusTooManyRequests)
		return
	}

	// A client that disconnects between the two remote calls must not
	// orphan the contact. The API client's own timeouts still apply.
	out := s.submitter.Submit(context.WithoutCancel(r.Context()), app)
	target := s.pages.Target(out)

	s.logger.Info("submission handled",
		"request_id", chimw.GetReqID(r.Context()),
		"submission_id", out.SubmissionID,
		"state", out.State,
	)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", s.now().Sub(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func applicationFromForm(r *http.Request) submission.Application {
	return submission.Application{
		FirstName:      r.PostFormValue("first_name"),
		LastName:       r.PostFormValue("last_name"),
		Email:          r.PostFormValue("email"),
		Phone:          submission.Optional(r.PostFormValue("phone")),
		Street:         submission.Optional(r.PostFormValue("street")),
		HouseNumber:    submission.Optional(r.PostFormValue("house_number")),
		PostalCode:     submission.Optional(r.PostFormValue("postal_code")),
		City:           submission.Optional(r.PostFormValue("city")),
		Country:        submission.Optional(r.PostFormValue("country")),
		DateOfBirth:    submission.Optional(r.PostFormValue("date_of_birth")),
		MembershipType: r.PostFormValue("membership_type"),
		IBAN:           submission.Optional(r.PostFormValue("iban")),
		AccountHolder:  submission.Optional(r.PostFormValue("account_holder")),
		Notes:          submission.Optional(r.PostFormValue("notes")),
	}
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
