package controller

import (
	"codebattle/internal/analysis/service"
	"codebattle/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// AnalysisController exposes AI code review.
type AnalysisController struct {
	analysisService *service.AnalysisService
}

func NewAnalysisController(analysisService *service.AnalysisService) *AnalysisController {
	return &AnalysisController{analysisService: analysisService}
}

func (h *AnalysisController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/analyze", h.Analyze)
}

// Analyze handles POST /analyze and returns the bare report as data.
func (h *AnalysisController) Analyze(c *gin.Context) {
	var req service.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	report, err := h.analysisService.Analyze(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}
