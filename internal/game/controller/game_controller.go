package controller

import (
	"codebattle/internal/game/model"
	"codebattle/internal/game/service"
	"codebattle/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const startMessage = "Start game via socket"

// GameController handles room and submission HTTP requests.
type GameController struct {
	gameService *service.GameService
}

func NewGameController(gameService *service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

// RegisterRoutes mounts the game routes under group.
func (h *GameController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/create", h.Create)
	group.POST("/join", h.Join)
	group.POST("/start", h.Start)
	group.POST("/run", h.Run)
	group.POST("/submit", h.Submit)
}

// Create handles POST /create. An empty body creates a guest room.
func (h *GameController) Create(c *gin.Context) {
	var req CreateRoomRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}

	out, err := h.gameService.CreateRoom(c.Request.Context(), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, CreateRoomResponse{Success: true, RoomID: out.RoomID, Match: out.Match})
}

// Join handles POST /join.
func (h *GameController) Join(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "roomId is required")
		return
	}

	match, err := h.gameService.JoinRoom(c.Request.Context(), req.RoomID, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, JoinRoomResponse{Success: true, Match: match})
}

// Start handles POST /start.
func (h *GameController) Start(c *gin.Context) {
	var req StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "roomId is required")
		return
	}

	out, err := h.gameService.StartGame(c.Request.Context(), req.RoomID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, StartGameResponse{Message: startMessage, RoomID: out.RoomID, Problem: out.Problem})
}

// Run handles POST /run. Execution faults are a normal response with success=false.
func (h *GameController) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "roomId is required")
		return
	}

	out, err := h.gameService.Run(c.Request.Context(), service.RunInput{
		RoomID:     req.RoomID,
		UserID:     req.UserID,
		SourceCode: req.SourceCode,
		Language:   req.Language,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if out.Outcome == model.OutcomeExecutionError {
		response.Success(c, RunResponse{Success: false, Error: out.Error})
		return
	}
	response.Success(c, RunResponse{Success: true, Result: out.Result})
}

// Submit handles POST /submit.
func (h *GameController) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "roomId is required")
		return
	}

	out, err := h.gameService.Submit(c.Request.Context(), service.SubmitInput{
		RoomID:     req.RoomID,
		UserID:     req.UserID,
		SourceCode: req.SourceCode,
		Language:   req.Language,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := SubmitResponse{Success: true, Results: out.Results, IsWin: out.IsWin}
	if out.Outcome == model.OutcomeExecutionError {
		resp = SubmitResponse{Success: false, Results: []model.CaseResult{}, Error: out.Error}
	}
	if resp.Results == nil {
		resp.Results = []model.CaseResult{}
	}
	response.Success(c, resp)
}
