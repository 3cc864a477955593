package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDoSetsHeaders(t *testing.T) {
	var gotUser, gotType, gotBody, gotTrace string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-User-Id")
		gotType = r.Header.Get("Content-Type")
		gotTrace = r.Header.Get("X-Trace-Id")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"code":10000}`))
	}))
	defer server.Close()

	user := "alice"
	client := New(server.URL, time.Second, func() string { return user })
	resp, err := client.Do(context.Background(), http.MethodPost, "/api/game/create", map[string]string{"X-Trace-Id": "t-1"}, []byte(`{"userId":"alice"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"code":10000}`, string(resp.Body))
	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "t-1", gotTrace)
	assert.Equal(t, `{"userId":"alice"}`, gotBody)

	user = ""
	_, err = client.Do(context.Background(), http.MethodGet, "/health", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, gotUser)
}

func TestClientBaseURL(t *testing.T) {
	client := New("http://127.0.0.1:1", time.Second, nil)
	client.SetBaseURL("http://localhost:5000")
	assert.Equal(t, "http://localhost:5000", client.BaseURL())
}
