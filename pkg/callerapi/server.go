// Package callerapi binds the caller-facing operations onto HTTP,
// delegating mutating operations to the orchestrator or the session
// manager (project creation writes to the Work store directly) and
// every error to the uniform mapping in errors.go.
package callerapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/specbench/workbench/pkg/orchestrator"
	"github.com/specbench/workbench/pkg/sessionmgr"
	"github.com/specbench/workbench/pkg/store/identitystore"
	"github.com/specbench/workbench/pkg/store/workstore"
	"github.com/specbench/workbench/pkg/version"
)

// Server is the HTTP binding over the orchestrator and session manager.
type Server struct {
	engine   *gin.Engine
	identity *identitystore.Client
	work     *workstore.Client
	sessions *sessionmgr.Manager
	orch     *orchestrator.Orchestrator
}

// NewServer builds the router and registers every caller operation.
func NewServer(identity *identitystore.Client, work *workstore.Client, sessions *sessionmgr.Manager, orch *orchestrator.Orchestrator) *Server {
	s := &Server{identity: identity, work: work, sessions: sessions, orch: orch}

	engine := gin.Default()
	engine.GET("/health", s.health)

	api := engine.Group("/api/v1", s.authMiddleware())
	api.POST("/projects", s.createProject)
	api.GET("/projects", s.listProjects)
	api.POST("/sessions", s.startSession)
	api.POST("/sessions/:session_id/question", s.generateQuestion)
	api.POST("/sessions/:session_id/answer", s.submitAnswer)
	api.POST("/sessions/:session_id/chat", s.directChat)
	api.POST("/sessions/:session_id/mode", s.toggleMode)
	api.GET("/projects/:project_id/conflicts", s.listConflicts)
	api.POST("/conflicts/:conflict_id/resolve", s.resolveConflict)
	api.POST("/projects/:project_id/advance_phase", s.advancePhase)
	api.POST("/projects/:project_id/generate_code", s.generateCode)
	api.GET("/projects/:project_id/export", s.export)

	s.engine = engine
	return s
}

// Run starts the HTTP server on addr and blocks until ctx is canceled
// or the server stops on its own.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": version.Full()})
}
