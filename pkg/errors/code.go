package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: User module errors
// 12000-12999: Problem module errors
// 13000-13999: Room & Submission errors
// 14000-14999: Execution gateway errors
// 15000-15999: Analysis errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Conflict            ErrorCode = 10004
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008
	ConfigurationError  ErrorCode = 10009

	// Database errors (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102
	TransactionFailed   ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	CacheMiss  ErrorCode = 10201

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== User Module Errors (11000-11999) ==========

	UserNotFound      ErrorCode = 11001
	UserUpdateFailed  ErrorCode = 11200
	LeaderboardFailed ErrorCode = 11300

	// ========== Problem Module Errors (12000-12999) ==========

	ProblemNotFound     ErrorCode = 12000
	ProblemCreateFailed ErrorCode = 12002
	TestCaseNotFound    ErrorCode = 12100
	ProblemSourceFailed ErrorCode = 12200

	// ========== Room & Submission Errors (13000-13999) ==========

	// Room (13000-13099)
	RoomNotFound     ErrorCode = 13000
	RoomCreateFailed ErrorCode = 13001
	RoomNotJoinable  ErrorCode = 13002
	SessionCorrupted ErrorCode = 13003

	// Submission (13100-13199)
	SubmissionFailed     ErrorCode = 13100
	CodeTooLarge         ErrorCode = 13101
	LanguageNotSupported ErrorCode = 13102
	SubmitTooFrequently  ErrorCode = 13103

	// ========== Execution Gateway Errors (14000-14999) ==========

	ExecutionFailed       ErrorCode = 14000
	ExecutionTimeout      ErrorCode = 14001
	ExecutorNotConfigured ErrorCode = 14002

	// ========== Analysis Errors (15000-15999) ==========

	AnalysisFailed        ErrorCode = 15000
	AnalyzerNotConfigured ErrorCode = 15001
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Conflict:            "Resource state conflict",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",
	ConfigurationError:  "Server configuration error",

	// Database
	DatabaseError:       "Database error",
	RecordNotFound:      "Record not found in database",
	RecordAlreadyExists: "Record already exists",
	TransactionFailed:   "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",
	CacheMiss:  "Cache miss",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// User
	UserNotFound:      "User not found",
	UserUpdateFailed:  "Failed to update user",
	LeaderboardFailed: "Failed to load leaderboard",

	// Problem
	ProblemNotFound:     "Problem not found",
	ProblemCreateFailed: "Failed to create problem",
	TestCaseNotFound:    "No test cases found for this room",
	ProblemSourceFailed: "Failed to fetch problem",

	// Room
	RoomNotFound:     "Game session not found",
	RoomCreateFailed: "Failed to create room",
	RoomNotJoinable:  "Room is not open for joining",
	SessionCorrupted: "Game corrupted (No test cases)",

	// Submission
	SubmissionFailed:     "Error processing submission",
	CodeTooLarge:         "Code is too large",
	LanguageNotSupported: "Programming language not supported",
	SubmitTooFrequently:  "Submitting too frequently, please wait",

	// Execution
	ExecutionFailed:       "Execution failed due to external API error",
	ExecutionTimeout:      "Execution timed out",
	ExecutorNotConfigured: "Execution service credentials are not configured",

	// Analysis
	AnalysisFailed:        "Failed to analyze code",
	AnalyzerNotConfigured: "Server API Key configuration error",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == RecordNotFound, c == UserNotFound, c == ProblemNotFound:
		return 404
	case c == RoomNotFound, c == SessionCorrupted, c == TestCaseNotFound:
		return 404
	case c == Conflict, c == RoomNotJoinable, c == RecordAlreadyExists:
		return 409
	case c == TooManyRequests, c == SubmitTooFrequently:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c == Timeout:
		return 504
	case c == CodeTooLarge, c == LanguageNotSupported:
		return 400
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams:
		return 400
	default:
		return 500
	}
}
