package model

import (
	"time"

	problemmodel "codebattle/internal/problem/model"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// GuestPlayer is stored as player1 when a room is created anonymously.
const GuestPlayer = "guest"

// Match is the persisted record of one room.
type Match struct {
	RoomID     string                  `json:"roomId" bson:"roomId"`
	Player1    string                  `json:"player1" bson:"player1"`
	Player2    string                  `json:"player2,omitempty" bson:"player2,omitempty"`
	Status     Status                  `json:"status" bson:"status"`
	ProblemID  string                  `json:"problemId,omitempty" bson:"problemId,omitempty"`
	TestCases  []problemmodel.TestCase `json:"-" bson:"testCases"`
	Winner     string                  `json:"winner,omitempty" bson:"winner,omitempty"`
	CreatedAt  time.Time               `json:"createdAt" bson:"createdAt"`
	FinishedAt *time.Time              `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
}

// SessionData is the problem slice of a match that run and submit need.
type SessionData struct {
	ProblemID string
	TestCases []problemmodel.TestCase
}

// Outcome tags a judged result: either the code was evaluated, or it could not be.
type Outcome string

const (
	OutcomeEvaluated      Outcome = "evaluated"
	OutcomeExecutionError Outcome = "execution_error"
)

// CaseResult is the verdict for one test case. ID is 1-based and omitted for runs.
type CaseResult struct {
	ID       int    `json:"id,omitempty"`
	Passed   bool   `json:"passed"`
	Input    string `json:"input"`
	Actual   string `json:"actual"`
	Expected string `json:"expected"`
}

// RunResult is the outcome of a public single-case run.
type RunResult struct {
	Outcome Outcome
	Result  *CaseResult
	Error   string
}

// SubmitResult is the outcome of a ranked submission.
type SubmitResult struct {
	Outcome Outcome
	Results []CaseResult
	IsWin   bool
	Error   string
}

// MatchFinishedEvent is published once per match when a winner is recorded.
type MatchFinishedEvent struct {
	RoomID     string    `json:"roomId"`
	Winner     string    `json:"winner"`
	ProblemID  string    `json:"problemId"`
	Language   string    `json:"language"`
	FinishedAt time.Time `json:"finishedAt"`
}

// SubmissionArchive is the stored record of a ranked submission.
type SubmissionArchive struct {
	RoomID      string       `json:"roomId"`
	UserID      string       `json:"userId"`
	ProblemID   string       `json:"problemId"`
	Language    string       `json:"language"`
	SourceCode  string       `json:"sourceCode"`
	Outcome     Outcome      `json:"outcome"`
	Results     []CaseResult `json:"results"`
	IsWin       bool         `json:"isWin"`
	Error       string       `json:"error,omitempty"`
	SubmittedAt time.Time    `json:"submittedAt"`
}
