package callerapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/orchestrator"
)

func (s *Server) identityFor(c *gin.Context) orchestrator.Identity {
	return orchestrator.Identity{UserID: callerUserID(c)}
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	project, err := s.work.CreateProject(c.Request.Context(), callerUserID(c), req.Name, req.Description)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": project})
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.work.ListProjectsForUser(c.Request.Context(), callerUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

type startSessionRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	Mode      string `json:"mode"`
}

func (s *Server) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	session, err := s.sessions.StartSession(c.Request.Context(), req.ProjectID, callerUserID(c), models.SessionMode(req.Mode))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

func (s *Server) generateQuestion(c *gin.Context) {
	sessionID := c.Param("session_id")
	resp, err := s.orch.Route(c.Request.Context(), "socratic", "generate_question",
		map[string]any{"session_id": sessionID}, s.identityFor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	writeRouteResponse(c, resp)
}

type submitAnswerRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) submitAnswer(c *gin.Context) {
	sessionID := c.Param("session_id")
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	resp, err := s.orch.Route(c.Request.Context(), "context", "extract_specifications",
		map[string]any{"session_id": sessionID, "utterance": req.Text}, s.identityFor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	writeRouteResponse(c, resp)
}

func (s *Server) directChat(c *gin.Context) {
	sessionID := c.Param("session_id")
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	resp, err := s.orch.Route(c.Request.Context(), "direct_chat", "process_chat_message",
		map[string]any{"session_id": sessionID, "message": req.Text}, s.identityFor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	writeRouteResponse(c, resp)
}

type toggleModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (s *Server) toggleMode(c *gin.Context) {
	sessionID := c.Param("session_id")
	var req toggleModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	if err := s.sessions.ToggleMode(c.Request.Context(), sessionID, models.SessionMode(req.Mode)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": req.Mode})
}

func (s *Server) listConflicts(c *gin.Context) {
	projectID := c.Param("project_id")
	conflicts, err := s.work.ListConflicts(c.Request.Context(), projectID)
	if err != nil {
		respondErr(c, err)
		return
	}

	pending := make([]*models.Conflict, 0, len(conflicts))
	resolved := make([]*models.Conflict, 0, len(conflicts))
	for _, conflict := range conflicts {
		if conflict.IsTerminal() {
			resolved = append(resolved, conflict)
		} else {
			pending = append(pending, conflict)
		}
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending, "resolved": resolved})
}

type resolveConflictRequest struct {
	Resolution  string `json:"resolution" binding:"required"`
	MergedValue any    `json:"merged_value"`
}

func (s *Server) resolveConflict(c *gin.Context) {
	conflictID := c.Param("conflict_id")
	var req resolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	payload := map[string]any{
		"conflict_id": conflictID,
		"resolution":  req.Resolution,
		"actor":       callerUserID(c),
	}
	if req.MergedValue != nil {
		payload["merged_value"] = req.MergedValue
	}

	resp, err := s.orch.Route(c.Request.Context(), "conflict", "resolve", payload, s.identityFor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	writeRouteResponse(c, resp)
}

func (s *Server) advancePhase(c *gin.Context) {
	projectID := c.Param("project_id")
	resp, err := s.sessions.AdvancePhase(c.Request.Context(), projectID, s.identityFor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	writeRouteResponse(c, resp)
}

func (s *Server) generateCode(c *gin.Context) {
	projectID := c.Param("project_id")
	resp, err := s.orch.Route(c.Request.Context(), "code_generator", "generate",
		map[string]any{"project_id": projectID}, s.identityFor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	writeRouteResponse(c, resp)
}

// writeRouteResponse renders an orchestrator.Response as JSON,
// preserving the Blocked shape as a first-class body rather than an
// HTTP error.
func writeRouteResponse(c *gin.Context, resp *orchestrator.Response) {
	if resp.Blocked {
		c.JSON(http.StatusOK, gin.H{
			"blocked":       true,
			"reason":        resp.BlockReason,
			"issues":        resp.BlockIssues,
			"path_analysis": resp.PathAnalysis,
			"alternatives":  resp.Alternatives,
		})
		return
	}

	body := gin.H{"result": resp.Result}
	if resp.QualityValidation != nil {
		body["quality_validation"] = resp.QualityValidation
	}
	c.JSON(http.StatusOK, body)
}
