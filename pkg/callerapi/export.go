package callerapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/models"
)

// export renders a project's current specifications as markdown or
// json, selected via the `format` query parameter.
func (s *Server) export(c *gin.Context) {
	projectID := c.Param("project_id")
	format := c.DefaultQuery("format", "markdown")

	project, err := s.work.GetProject(c.Request.Context(), projectID)
	if err != nil {
		respondErr(c, err)
		return
	}
	specs, err := s.work.ListCurrentSpecifications(c.Request.Context(), projectID)
	if err != nil {
		respondErr(c, err)
		return
	}

	switch format {
	case "json":
		body, err := json.MarshalIndent(exportDocument(project, specs), "", "  ")
		if err != nil {
			respondErr(c, apperrors.NewInternalError("export-json-encode", err))
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	case "markdown":
		c.Data(http.StatusOK, "text/markdown", []byte(exportMarkdown(project, specs)))
	default:
		respondErr(c, apperrors.ErrUnsupportedFormat)
	}
}

type exportDoc struct {
	Project *models.Project         `json:"project"`
	Specs   []*models.Specification `json:"specifications"`
}

func exportDocument(project *models.Project, specs []*models.Specification) exportDoc {
	return exportDoc{Project: project, Specs: specs}
}

func exportMarkdown(project *models.Project, specs []*models.Specification) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", project.Name)
	fmt.Fprintf(&sb, "%s\n\n", project.Description)
	fmt.Fprintf(&sb, "Phase: %s  \nMaturity: %.1f\n\n", project.CurrentPhase, project.MaturityScore)

	byCategory := make(map[string][]*models.Specification)
	for _, s := range specs {
		byCategory[s.Category] = append(byCategory[s.Category], s)
	}
	for _, cat := range models.MaturityCategories {
		entries := byCategory[cat]
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", cat)
		for _, e := range entries {
			fmt.Fprintf(&sb, "- **%s**: %v\n", e.Key, e.Value)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
