package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"codebattle/internal/common/cache"
	appErr "codebattle/pkg/errors"
	"codebattle/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	promptTemplate = `You are a coding interview coach.
Analyze this %s solution for "%s".

Code:
%s

Return purely valid JSON with these keys:
{
    "timeComplexity": "O(...)",
    "spaceComplexity": "O(...)",
    "feedback": "Short summary...",
    "suggestions": ["Tip 1", "Tip 2"]
}
Do not use markdown formatting. Just raw JSON.`

	reportKeyPrefix    = "analysis:report:"
	defaultReportTTL   = 24 * time.Hour
	defaultMaxCodeSize = 64 * 1024
)

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Request is the code to analyze.
type Request struct {
	SourceCode   string `json:"sourceCode"`
	ProblemTitle string `json:"problemTitle"`
	Language     string `json:"language"`
}

// Report is the coach feedback for one solution.
type Report struct {
	TimeComplexity  string   `json:"timeComplexity"`
	SpaceComplexity string   `json:"spaceComplexity"`
	Feedback        string   `json:"feedback"`
	Suggestions     []string `json:"suggestions"`
}

// Config holds analysis service dependencies. Generator may be nil when no API key is set;
// Cache is optional.
type Config struct {
	Generator    Generator
	Cache        cache.BasicOps
	ReportTTL    time.Duration
	MaxCodeBytes int
	Timeout      time.Duration
}

// AnalysisService asks a language model to review a solution.
type AnalysisService struct {
	generator    Generator
	cache        cache.BasicOps
	reportTTL    time.Duration
	maxCodeBytes int
	timeout      time.Duration
}

func NewAnalysisService(cfg Config) *AnalysisService {
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = defaultReportTTL
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeSize
	}
	return &AnalysisService{
		generator:    cfg.Generator,
		cache:        cfg.Cache,
		reportTTL:    cfg.ReportTTL,
		maxCodeBytes: cfg.MaxCodeBytes,
		timeout:      cfg.Timeout,
	}
}

// Analyze returns the report for req. Identical requests are served from cache when one is configured.
func (s *AnalysisService) Analyze(ctx context.Context, req Request) (*Report, error) {
	if strings.TrimSpace(req.SourceCode) == "" {
		return nil, appErr.ValidationError("sourceCode", "required")
	}
	if len(req.SourceCode) > s.maxCodeBytes {
		return nil, appErr.New(appErr.CodeTooLarge)
	}
	if s.generator == nil {
		logger.Error(ctx, "analysis requested without GEMINI_API_KEY")
		return nil, appErr.ConfigError(appErr.AnalyzerNotConfigured, "GEMINI_API_KEY")
	}

	if s.cache == nil {
		return s.generate(ctx, req)
	}
	report, err := cache.GetWithCached(
		ctx,
		s.cache,
		reportKey(req),
		cache.JitterTTL(s.reportTTL),
		0,
		func(r *Report) bool { return r == nil },
		marshalReport,
		unmarshalReport,
		func(ctx context.Context) (*Report, error) { return s.generate(ctx, req) },
	)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *AnalysisService) generate(ctx context.Context, req Request) (*Report, error) {
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.generator.Generate(callCtx, BuildPrompt(req))
	if err != nil {
		logger.Error(ctx, "analysis generation failed", zap.Error(err))
		return nil, appErr.Wrapf(err, appErr.AnalysisFailed, "Failed to analyze code")
	}
	report, err := ParseReport(text)
	if err != nil {
		logger.Error(ctx, "analysis reply is not valid json", zap.Error(err), zap.Int("reply_bytes", len(text)))
		return nil, appErr.Wrapf(err, appErr.AnalysisFailed, "Failed to analyze code")
	}
	return report, nil
}

// BuildPrompt renders the coach prompt for req.
func BuildPrompt(req Request) string {
	return fmt.Sprintf(promptTemplate, req.Language, req.ProblemTitle, req.SourceCode)
}

// ParseReport strips markdown code fences from a model reply and decodes the JSON inside.
func ParseReport(text string) (*Report, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var report Report
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return nil, err
	}
	if report.Suggestions == nil {
		report.Suggestions = []string{}
	}
	return &report, nil
}

func reportKey(req Request) string {
	sum := sha256.Sum256([]byte(req.Language + "\x00" + req.ProblemTitle + "\x00" + req.SourceCode))
	return reportKeyPrefix + hex.EncodeToString(sum[:])
}

func marshalReport(r *Report) string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalReport(data string) (*Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
