package controller

import (
	"codebattle/internal/game/model"
	problemmodel "codebattle/internal/problem/model"
)

// CreateRoomRequest is the body of POST /create.
type CreateRoomRequest struct {
	UserID string `json:"userId"`
}

// CreateRoomResponse is returned by POST /create.
type CreateRoomResponse struct {
	Success bool         `json:"success"`
	RoomID  string       `json:"roomId"`
	Match   *model.Match `json:"match"`
}

// JoinRoomRequest is the body of POST /join.
type JoinRoomRequest struct {
	RoomID string `json:"roomId" binding:"required"`
	UserID string `json:"userId"`
}

// JoinRoomResponse is returned by POST /join.
type JoinRoomResponse struct {
	Success bool         `json:"success"`
	Match   *model.Match `json:"match"`
}

// StartGameRequest is the body of POST /start.
type StartGameRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

// StartGameResponse is returned by POST /start.
type StartGameResponse struct {
	Message string                     `json:"message"`
	RoomID  string                     `json:"roomId"`
	Problem problemmodel.PublicProblem `json:"problem"`
}

// RunRequest is the body of POST /run.
type RunRequest struct {
	RoomID     string `json:"roomId" binding:"required"`
	UserID     string `json:"userId"`
	SourceCode string `json:"sourceCode"`
	Language   string `json:"language"`
}

// RunResponse is returned by POST /run. Result and Error are mutually exclusive.
type RunResponse struct {
	Success bool              `json:"success"`
	Result  *model.CaseResult `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// SubmitRequest is the body of POST /submit.
type SubmitRequest struct {
	RoomID     string `json:"roomId" binding:"required"`
	UserID     string `json:"userId"`
	SourceCode string `json:"sourceCode"`
	Language   string `json:"language"`
}

// SubmitResponse is returned by POST /submit.
type SubmitResponse struct {
	Success bool               `json:"success"`
	Results []model.CaseResult `json:"results"`
	IsWin   bool               `json:"isWin"`
	Error   string             `json:"error,omitempty"`
}
