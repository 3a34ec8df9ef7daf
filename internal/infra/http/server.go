// Package http exposes the evidence pipeline over a gin HTTP surface:
// submission, progress (polling and websocket streaming), inclusion proofs
// and cancellation.
package http

import (
	"net/http"

	"github.com/LexatoBR/lexato-extension-sub001/internal/infra/db"
	"github.com/LexatoBR/lexato-extension-sub001/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	addr  string
	r     *gin.Engine
	store *db.Store

	pipeline *usecase.EvidencePipeline
	tracker  *usecase.ProgressTracker
	evidence usecase.EvidenceRepository
	logger   *zap.Logger
}

type ServerDeps struct {
	Addr     string
	Store    *db.Store
	Pipeline *usecase.EvidencePipeline
	Tracker  *usecase.ProgressTracker
	Evidence usecase.EvidenceRepository
	Logger   *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		addr:     deps.Addr,
		r:        r,
		store:    deps.Store,
		pipeline: deps.Pipeline,
		tracker:  deps.Tracker,
		evidence: deps.Evidence,
		logger:   deps.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store.Enabled() {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})
	s.r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.r.Group("/v1")
	{
		v1.POST("/evidence", s.handleSubmitEvidence)
		v1.GET("/evidence/:id", s.handleGetEvidence)
		v1.DELETE("/evidence/:id", s.handleCancelEvidence)
		v1.GET("/evidence/:id/progress", s.handleGetProgress)
		v1.GET("/evidence/:id/progress/stream", s.handleStreamProgress)
		v1.GET("/evidence/:id/proof/:index", s.handleInclusionProof)
		v1.GET("/evidence/:id/watchdogs", s.handleWatchdogs)
		v1.GET("/progress", s.handleAllProgress)
		v1.POST("/proofs/verify", s.handleVerifyProof)
	}

	s.r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) Run() error {
	return s.r.Run(s.addr)
}
