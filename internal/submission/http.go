package submission

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/common/ratelimit"
	"github.com/flowforge/flowcore/internal/loader"
	"github.com/flowforge/flowcore/internal/model"
	"github.com/flowforge/flowcore/internal/resolver"
)

// SubmitRequest is the POST /submissions request body.
type SubmitRequest struct {
	ManifestLocator string `json:"manifest_locator"`
	Concurrency     int    `json:"concurrency"`
	JobTimeoutMS    int64  `json:"job_timeout_ms"`
	Debug           bool   `json:"debug"`
	DebuggerExpr    string `json:"debugger_expr,omitempty"`
}

// SubmitResponse acknowledges a submission and names where to open the
// client websocket.
type SubmitResponse struct {
	SubmissionID string `json:"submission_id"`
	ClientWSPath string `json:"client_ws_path"`
}

// Server hosts the submission HTTP API on echo (spec.md §4.M/§6): accept a
// submission, upgrade its client channel, and report status.
type Server struct {
	Echo *echo.Echo

	content  loader.ContentProvider
	libs     resolver.Provider
	ctxFns   resolver.ContextFuncs
	audit    *AuditRepository
	log      *logger.Logger
	limiter  *ratelimit.RateLimiter

	mu          sync.Mutex
	submissions map[string]*Coordinator
}

// NewServer builds the submission API. content/libs/ctxFns are the
// collaborators needed to load a manifest's locator and bind its
// implementations (components B/I); audit may be nil to disable
// persistence. limiter may be nil to disable rate limiting (no Redis
// configured, or the `flowr run` single-submission path).
func NewServer(content loader.ContentProvider, libs resolver.Provider, ctxFns resolver.ContextFuncs, audit *AuditRepository, log *logger.Logger, limiter *ratelimit.RateLimiter) *Server {
	s := &Server{
		Echo:        echo.New(),
		content:     content,
		libs:        libs,
		ctxFns:      ctxFns,
		audit:       audit,
		log:         log,
		limiter:     limiter,
		submissions: make(map[string]*Coordinator),
	}

	s.Echo.GET("/healthz", s.healthz)
	s.Echo.POST("/submissions", s.submit, RateLimitMiddleware(limiter))
	s.Echo.GET("/submissions/:id", s.getSubmission)
	s.Echo.GET("/submissions/:id/ws", s.submissionWS)

	return s
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) submit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.ManifestLocator == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "manifest_locator is required")
	}
	if req.Concurrency <= 0 {
		req.Concurrency = 4
	}

	ctx := c.Request().Context()
	raw, err := s.content.Fetch(ctx, req.ManifestLocator)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "manifest not found: "+err.Error())
	}

	var manifest model.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid manifest: "+err.Error())
	}

	bound, err := resolver.Resolve(ctx, &manifest, s.libs, s.ctxFns, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "unresolved implementation: "+err.Error())
	}

	clientID, _ := c.Get("client_id").(string)
	if clientID == "" {
		clientID = "anonymous"
	}
	if err := checkManifestTier(s.limiter, c, clientID, len(manifest.Functions)); err != nil {
		return err
	}

	coord := New(Request{
		ManifestLocator: req.ManifestLocator,
		Manifest:        &manifest,
		Concurrency:     req.Concurrency,
		JobTimeout:      time.Duration(req.JobTimeoutMS) * time.Millisecond,
		Debug:           req.Debug,
		DebuggerExpr:    req.DebuggerExpr,
	}, bound, s.log, s.audit)

	s.mu.Lock()
	s.submissions[coord.ID()] = coord
	s.mu.Unlock()

	go func() {
		runCtx := context.Background()
		if err := coord.Run(runCtx); err != nil {
			s.log.Error("submission ended with error", "submission_id", coord.ID(), "error", err)
		}
	}()

	return c.JSON(http.StatusAccepted, SubmitResponse{
		SubmissionID: coord.ID(),
		ClientWSPath: "/submissions/" + coord.ID() + "/ws",
	})
}

func (s *Server) getSubmission(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	coord, ok := s.submissions[id]
	s.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown submission")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"submission_id": coord.ID(),
		"metrics":       coord.coord.State.Metrics(),
	})
}

func (s *Server) submissionWS(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	_, ok := s.submissions[id]
	s.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown submission")
	}

	channel, err := NewWSChannel(c.Response(), c.Request())
	if err != nil {
		return err
	}
	defer channel.Close()

	s.log.Info("client channel attached", "submission_id", id)
	<-c.Request().Context().Done()
	return nil
}
