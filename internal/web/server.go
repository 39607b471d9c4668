// Package web exposes studio sessions as a JSON API. Generation runs in the
// background; clients poll the session until its status leaves "loading".
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cors "github.com/rs/cors/wrapper/gin"

	"temudesign/internal/session"
	"temudesign/internal/studio"
	"temudesign/internal/upload"
)

type Options struct {
	Orchestrator *studio.Orchestrator
	Gate         *studio.Gate
	Sessions     *session.Store
	Logger       *slog.Logger

	RequestTimeout time.Duration
	Now            func() time.Time
}

type Server struct {
	orch     *studio.Orchestrator
	gate     *studio.Gate
	sessions *session.Store
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time

	// base is cancelled by Close and parents every background request.
	base   context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	base, cancel := context.WithCancel(context.Background())

	return &Server{
		orch:     opts.Orchestrator,
		gate:     opts.Gate,
		sessions: opts.Sessions,
		logger:   logger,
		timeout:  timeout,
		now:      now,
		base:     base,
		cancel:   cancel,
	}
}

// Close cancels in-flight generations and waits for them to settle.
func (s *Server) Close() {
	s.cancel()
	s.jobs.Wait()
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), cors.New(cors.Options{
		AllowOriginFunc: func(string) bool { return true },
		AllowedMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:  []string{"*"},
	}))

	api := r.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		api.GET("/modes", s.listModes)
		api.POST("/sessions", s.createSession)

		sess := api.Group("/sessions/:id", s.loadSession)
		{
			sess.GET("", s.getSession)
			sess.DELETE("", s.deleteSession)
			sess.POST("/mode", s.setMode)
			sess.POST("/reset", s.reset)
			sess.POST("/inputs", s.setInputs)
			sess.POST("/images/:slot", s.uploadImage)
			sess.POST("/generate", s.generate)
			sess.POST("/suggestion", s.editSuggestion)
			sess.POST("/suggestion/confirm", s.confirmSuggestion)
			sess.POST("/suggestion/cancel", s.cancelSuggestion)
			sess.POST("/select", s.selectArtifact)
			sess.GET("/artifact", s.downloadArtifact)
			sess.POST("/premium", s.setPremium)
			sess.POST("/credential", s.submitCredential)
			sess.POST("/credential/cancel", s.cancelCredential)
		}
	}
	return r
}

// requestLogger logs one line per request the way the servers log
// everything else.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	}
}

const entryKey = "entry"

func (s *Server) loadSession(c *gin.Context) {
	e, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, apiError{Error: "session not found"})
		return
	}
	c.Set(entryKey, e)
	c.Next()
}

func entryFrom(c *gin.Context) *session.Entry {
	return c.MustGet(entryKey).(*session.Entry)
}

type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type readiness struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

type viewerInfo struct {
	Position int `json:"position"`
	Total    int `json:"total"`
}

type sessionResponse struct {
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Model  string       `json:"model"`
	State  studio.State `json:"state"`
	Ready  readiness    `json:"ready"`
	Viewer viewerInfo   `json:"viewer"`
}

func (s *Server) respond(c *gin.Context, status int, e *session.Entry) {
	st := e.Studio.Snapshot()
	spec, _ := studio.Describe(st.Mode)

	ready := readiness{Ready: true}
	if err := studio.CheckReady(st); err != nil {
		ready = readiness{Reason: err.Error()}
	}
	n, total := studio.View(st).Position()

	c.JSON(status, sessionResponse{
		ID:     e.Key,
		Title:  spec.Title,
		Model:  st.Tier.ModelLabel(),
		State:  st,
		Ready:  ready,
		Viewer: viewerInfo{Position: n, Total: total},
	})
}

// fail maps core errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	var verr *studio.ValidationError
	var cerr *studio.CredentialFailure
	var serr *studio.ServiceError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, apiError{Error: verr.Message, Field: string(verr.Field)})
	case errors.As(err, &cerr):
		c.JSON(http.StatusUnprocessableEntity, apiError{Error: cerr.Message})
	case errors.As(err, &serr):
		c.JSON(http.StatusBadGateway, apiError{Error: serr.Message})
	case errors.Is(err, studio.ErrBusy), errors.Is(err, studio.ErrWrongPhase), errors.Is(err, studio.ErrStale):
		c.JSON(http.StatusConflict, apiError{Error: err.Error()})
	case errors.Is(err, studio.ErrUnknownMode), errors.Is(err, studio.ErrUnknownField),
		errors.Is(err, studio.ErrInvalidValue), errors.Is(err, studio.ErrWrongMode):
		c.JSON(http.StatusBadRequest, apiError{Error: err.Error()})
	case errors.Is(err, upload.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, apiError{Error: err.Error()})
	case errors.Is(err, upload.ErrEmpty), errors.Is(err, upload.ErrNotImage), errors.Is(err, upload.ErrMalformed):
		c.JSON(http.StatusUnsupportedMediaType, apiError{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, apiError{Error: err.Error()})
	}
}

func newSessionID() string {
	return uuid.NewString()
}
