package controller

import (
	"strconv"

	"codebattle/internal/user/service"
	"codebattle/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// UserController exposes player statistics.
type UserController struct {
	statsService *service.StatsService
}

func NewUserController(statsService *service.StatsService) *UserController {
	return &UserController{statsService: statsService}
}

// RegisterRoutes mounts the user routes under group.
func (h *UserController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/leaderboard", h.Leaderboard)
	group.GET("/:id", h.GetStats)
}

// Leaderboard handles GET /leaderboard?limit=N.
func (h *UserController) Leaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "limit must be an integer")
			return
		}
		limit = parsed
	}

	page, err := h.statsService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, LeaderboardResponse{Items: page.Items, Total: page.Total})
}

// GetStats handles GET /:id.
func (h *UserController) GetStats(c *gin.Context) {
	user, err := h.statsService.GetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}
