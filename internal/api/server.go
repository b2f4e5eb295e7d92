// Package api exposes review sessions and stored submissions over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-review/internal/blob"
	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/review"
)

// Submissions is the read/update side of the persistence gateway.
// *store.Gateway satisfies it.
type Submissions interface {
	GetSubmission(ctx context.Context, owner, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, owner string, filter model.SubmissionFilter) ([]model.Submission, error)
	UpdateSubmissionData(ctx context.Context, owner, id string, data *model.InspectionData) (*model.Submission, error)
}

// pinger is implemented by submission stores that can report readiness.
type pinger interface {
	Ping(ctx context.Context) error
}

// Options configure a Server.
type Options struct {
	// MaxUploadBytes bounds PDF uploads. Default: 25 MiB.
	MaxUploadBytes int64
	AllowedOrigins []string
}

// Server holds the handlers' dependencies.
type Server struct {
	sessions    *review.Registry
	submissions Submissions
	blobs       blob.Store
	auth        Authenticator
	opts        Options
}

// NewServer creates a Server. blobs may be nil when PDFs are not served
// by this process.
func NewServer(sessions *review.Registry, submissions Submissions, blobs blob.Store, auth Authenticator, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25 << 20
	}
	return &Server{
		sessions:    sessions,
		submissions: submissions,
		blobs:       blobs,
		auth:        auth,
		opts:        opts,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	if s.blobs != nil {
		r.Get("/files/*", s.handleFile)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser(s.auth))

		r.Post("/uploads", s.handleCreateUpload)
		r.Route("/uploads/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetUpload)
			r.Delete("/", s.handleDeleteUpload)
			r.Put("/file", s.handleReplaceFile)
			r.Get("/thumbnail", s.handleThumbnail)
			r.Put("/hints", s.handleSetHints)
			r.Post("/submit", s.handleSubmit)
			r.Post("/back", s.handleBack)

			r.Post("/checklist", s.handleAddChecklistItem)
			r.Patch("/checklist/{index}", s.handleUpdateChecklistItem)
			r.Delete("/checklist/{index}", s.handleRemoveChecklistItem)

			r.Post("/actions", s.handleAddAction)
			r.Patch("/actions/{index}", s.handleUpdateAction)
			r.Delete("/actions/{index}", s.handleRemoveAction)

			r.Patch("/fields/{field}", s.handleUpdateField)
			r.Post("/deadletter/{key}/resolve", s.handleResolveDeadletter)

			r.Post("/sections", s.handleAddSection)
			r.Delete("/sections", s.handleRemoveSection)

			r.Post("/save", s.handleSave)
		})

		r.Get("/submissions", s.handleListSubmissions)
		r.Get("/submissions/{id}", s.handleGetSubmission)
		r.Put("/submissions/{id}/data", s.handleUpdateSubmissionData)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	rc, err := s.blobs.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", blob.ContentTypePDF)
	if _, err := io.Copy(w, rc); err != nil {
		zap.L().Debug("api: stream file", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "sessions": s.sessions.Len()}
	if p, ok := s.submissions.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			zap.L().Warn("api: store ping failed", zap.Error(err))
			body["status"] = "degraded"
			body["store"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["store"] = "ok"
	}
	writeJSON(w, http.StatusOK, body)
}
