package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codebattle/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultJDoodleEndpoint = "https://api.jdoodle.com/v1/execute"

	externalFailureMessage = "Execution failed due to external API error"
	maxResponseBytes       = 1 << 20
)

type languageSpec struct {
	Language     string
	VersionIndex string
}

var languages = map[string]languageSpec{
	"javascript": {Language: "nodejs", VersionIndex: "5"},
	"python":     {Language: "python3", VersionIndex: "4"},
	"cpp":        {Language: "cpp17", VersionIndex: "1"},
	"java":       {Language: "java", VersionIndex: "4"},
}

// SupportedLanguage reports whether language has a remote runtime mapping.
func SupportedLanguage(language string) bool {
	_, ok := languages[strings.ToLower(strings.TrimSpace(language))]
	return ok
}

// JDoodleConfig holds credentials and limits for the JDoodle execute API.
type JDoodleConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	ClientID     string        `yaml:"clientID"`
	ClientSecret string        `yaml:"clientSecret"`
	Timeout      time.Duration `yaml:"timeout"`
	// RatePerSecond throttles outbound calls; 0 disables throttling.
	RatePerSecond float64 `yaml:"ratePerSecond"`
	Burst         int     `yaml:"burst"`
}

// JDoodleClient implements Executor against the JDoodle REST API.
type JDoodleClient struct {
	cfg        JDoodleConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

type jdoodleRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Script       string `json:"script"`
	Stdin        string `json:"stdin"`
	Language     string `json:"language"`
	VersionIndex string `json:"versionIndex"`
}

type jdoodleResponse struct {
	Output     string          `json:"output"`
	StatusCode int             `json:"statusCode"`
	Memory     json.RawMessage `json:"memory"`
	CPUTime    json.RawMessage `json:"cpuTime"`
	Error      string          `json:"error"`
}

// NewJDoodleClient creates a client. Missing credentials are not an error
// here; Execute reports ErrNotConfigured per call instead.
func NewJDoodleClient(cfg JDoodleConfig, httpClient *http.Client) *JDoodleClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultJDoodleEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &JDoodleClient{cfg: cfg, httpClient: httpClient, limiter: limiter}
}

func (c *JDoodleClient) Execute(ctx context.Context, req Request) (Result, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return Result{}, ErrNotConfigured
	}
	spec, ok := languages[strings.ToLower(strings.TrimSpace(req.Language))]
	if !ok {
		return Result{Error: fmt.Sprintf("Unsupported language: %s", req.Language)}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			return c.failure(ctx, callCtx, err), nil
		}
	}

	payload, err := json.Marshal(jdoodleRequest{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Script:       req.Source,
		Stdin:        req.Stdin,
		Language:     spec.Language,
		VersionIndex: spec.VersionIndex,
	})
	if err != nil {
		return c.failure(ctx, callCtx, err), nil
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return c.failure(ctx, callCtx, err), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.failure(ctx, callCtx, err), nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.failure(ctx, callCtx, err), nil
	}
	if resp.StatusCode != http.StatusOK {
		logger.Warn(ctx, "jdoodle returned http error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(body, 256)),
		)
		return Result{Error: externalFailureMessage}, nil
	}

	var decoded jdoodleResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return c.failure(ctx, callCtx, err), nil
	}
	logger.Debug(ctx, "jdoodle execute done",
		zap.String("language", spec.Language),
		zap.Int("status_code", decoded.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	result := Result{
		Stdout:  decoded.Output,
		CPUTime: rawString(decoded.CPUTime),
		Memory:  rawString(decoded.Memory),
	}
	if decoded.StatusCode != http.StatusOK {
		result.Error = decoded.Output
		if result.Error == "" {
			result.Error = decoded.Error
		}
		if result.Error == "" {
			result.Error = externalFailureMessage
		}
	}
	return result, nil
}

func (c *JDoodleClient) failure(ctx, callCtx context.Context, err error) Result {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		logger.Warn(ctx, "jdoodle call timed out", zap.Duration("timeout", c.cfg.Timeout))
		return Result{Error: fmt.Sprintf("Execution timed out after %gs", c.cfg.Timeout.Seconds())}
	}
	logger.Warn(ctx, "jdoodle call failed", zap.Error(err))
	return Result{Error: externalFailureMessage}
}

// rawString renders a JSON scalar that may arrive as a string or a number.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
