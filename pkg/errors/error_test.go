package errors_test

import (
	"errors"
	"fmt"
	"testing"

	. "codebattle/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{RoomNotFound, "Game session not found"},
		{SessionCorrupted, "Game corrupted (No test cases)"},
		{DatabaseError, "Database error"},
		{AnalyzerNotConfigured, "Server API Key configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{RoomNotFound, 404},
		{SessionCorrupted, 404},
		{RoomNotJoinable, 409},
		{SubmitTooFrequently, 429},
		{ConfigurationError, 500},
		{ExecutorNotConfigured, 500},
		{DatabaseError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(RoomNotFound, "room %s not found", "AB12CD")

	want := "room AB12CD not found"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	originalErr := errors.New("connection refused")
	err := Wrap(originalErr, DatabaseError)

	if err.Code != DatabaseError {
		t.Errorf("Code = %v, want %v", err.Code, DatabaseError)
	}
	if !errors.Is(err, originalErr) {
		t.Error("wrapped error should unwrap to the original")
	}
	if Wrap(nil, DatabaseError) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	inner := New(RoomNotFound)
	wrapped := fmt.Errorf("resolve session: %w", inner)

	if got := GetCode(wrapped); got != RoomNotFound {
		t.Errorf("GetCode() = %v, want %v", got, RoomNotFound)
	}
	if !Is(wrapped, RoomNotFound) {
		t.Error("Is() should see through fmt wrapping")
	}
	if got := GetCode(errors.New("plain")); got != InternalServerError {
		t.Errorf("GetCode(plain) = %v, want %v", got, InternalServerError)
	}
	if got := GetCode(nil); got != Success {
		t.Errorf("GetCode(nil) = %v, want %v", got, Success)
	}
}

func TestConfigError(t *testing.T) {
	err := ConfigError(ExecutorNotConfigured, "JDOODLE_CLIENT_ID")

	if err.Code.HTTPStatus() != 500 {
		t.Errorf("HTTPStatus() = %v, want 500", err.Code.HTTPStatus())
	}
	if err.Details["missing"] != "JDOODLE_CLIENT_ID" {
		t.Errorf("Details[missing] = %v", err.Details["missing"])
	}
}
