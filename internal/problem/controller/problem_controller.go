package controller

import (
	"strconv"

	"codebattle/internal/problem/service"
	"codebattle/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProblemController handles problem HTTP endpoints.
type ProblemController struct {
	problemService *service.ProblemService
}

// NewProblemController creates a new ProblemController.
func NewProblemController(problemService *service.ProblemService) *ProblemController {
	return &ProblemController{problemService: problemService}
}

// RegisterRoutes mounts the problem routes under group.
func (h *ProblemController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/:id", h.Get)
	group.POST("/refresh", h.Refresh)
}

// Get returns the public view of a problem; test cases stay hidden.
func (h *ProblemController) Get(c *gin.Context) {
	p, err := h.problemService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p.Public())
}

// Refresh scrapes ?count=N problems into the pool.
func (h *ProblemController) Refresh(c *gin.Context) {
	count := 1
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 20 {
			response.BadRequest(c, "count must be between 1 and 20")
			return
		}
		count = n
	}
	stored, err := h.problemService.Refresh(c.Request.Context(), count)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, RefreshResponse{Stored: stored})
}

type RefreshResponse struct {
	Stored int `json:"stored"`
}
