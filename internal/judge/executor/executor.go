package executor

import (
	"context"
	"errors"
)

// ErrNotConfigured means the execution backend has no credentials.
var ErrNotConfigured = errors.New("execution service credentials are not configured")

// Request is one program run against one stdin.
type Request struct {
	Source   string
	Language string
	Stdin    string
}

// Result is the normalized outcome of a run.
// Error is non-empty when the program could not be evaluated: the remote
// reported a non-success status, the call failed in transport, the language
// is unsupported, or the call timed out. Stdout is unused in that case.
type Result struct {
	Stdout  string `json:"stdout"`
	CPUTime string `json:"cpuTime,omitempty"`
	Memory  string `json:"memory,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the run produced an execution fault.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Executor runs untrusted source code remotely.
// The returned error is reserved for configuration faults; execution
// faults are reported through Result.Error.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}
