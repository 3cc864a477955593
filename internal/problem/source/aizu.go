package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"codebattle/internal/problem/model"
	"codebattle/pkg/utils/logger"

	"go.uber.org/zap"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrNoDescription = errors.New("problem description missing")
	ErrNoTestCases   = errors.New("no test cases extracted")
)

const (
	DefaultAizuBaseURL   = "https://judgeapi.u-aizu.ac.jp"
	aizuProblemPageURL   = "https://onlinejudge.u-aizu.ac.jp/problems/"
	defaultAizuUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	maxDescriptionBytes  = 2 << 20
	defaultAizuTimeout   = 5 * time.Second
)

// DefaultAizuProblemIDs is the ITP1 introductory set.
var DefaultAizuProblemIDs = []string{
	"ITP1_1_B", "ITP1_1_C", "ITP1_1_D",
	"ITP1_2_A", "ITP1_2_C", "ITP1_2_D",
	"ITP1_3_A", "ITP1_3_B", "ITP1_3_C", "ITP1_3_D",
	"ITP1_4_A", "ITP1_4_B", "ITP1_4_C", "ITP1_4_D",
}

// Fetcher supplies problems from an external judge.
type Fetcher interface {
	Fetch(ctx context.Context) (*model.Problem, error)
}

// AizuConfig configures the Aizu Online Judge description API.
type AizuConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	ProblemIDs []string      `yaml:"problemIDs"`
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"userAgent"`
}

// AizuFetcher scrapes sample test cases from Aizu problem descriptions.
type AizuFetcher struct {
	cfg        AizuConfig
	httpClient *http.Client
	pick       func(n int) int
}

func NewAizuFetcher(cfg AizuConfig, httpClient *http.Client) *AizuFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAizuBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.ProblemIDs) == 0 {
		cfg.ProblemIDs = DefaultAizuProblemIDs
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultAizuTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultAizuUserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &AizuFetcher{cfg: cfg, httpClient: httpClient, pick: rand.IntN}
}

// Fetch scrapes a random problem from the configured id list.
func (f *AizuFetcher) Fetch(ctx context.Context) (*model.Problem, error) {
	return f.FetchByID(ctx, f.cfg.ProblemIDs[f.pick(len(f.cfg.ProblemIDs))])
}

type aizuDescription struct {
	HTMLDescription    string `json:"html_description"`
	HTML               string `json:"html"`
	LiteralDescription string `json:"literal_description"`
}

// FetchByID scrapes one problem. It fails closed: a description without
// extractable sample pairs yields ErrNoTestCases, never an empty problem.
func (f *AizuFetcher) FetchByID(ctx context.Context, problemID string) (*model.Problem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/resources/descriptions/en/%s", f.cfg.BaseURL, problemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build aizu request failed: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aizu request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aizu returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDescriptionBytes))
	if err != nil {
		return nil, fmt.Errorf("read aizu response failed: %w", err)
	}

	var desc aizuDescription
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, fmt.Errorf("decode aizu response failed: %w", err)
	}
	content := desc.HTMLDescription
	if content == "" {
		content = desc.HTML
	}
	if content == "" && desc.LiteralDescription != "" {
		content = "<pre>" + html.EscapeString(desc.LiteralDescription) + "</pre>"
	}
	if content == "" {
		return nil, ErrNoDescription
	}

	cases, err := ExtractTestCases(content)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		logger.Warn(ctx, "aizu description has no sample pairs", zap.String("problem_id", problemID))
		return nil, ErrNoTestCases
	}
	logger.Info(ctx, "aizu problem scraped", zap.String("problem_id", problemID), zap.Int("test_cases", len(cases)))

	return &model.Problem{
		ProblemID:      problemID,
		Title:          "Aizu " + problemID,
		Description:    content,
		DescriptionURL: aizuProblemPageURL + problemID,
		TestCases:      cases,
		StarterCode:    model.StarterCodeFor(problemID),
		Source:         model.SourceAizu,
		CreatedAt:      time.Now(),
	}, nil
}

// ExtractTestCases pairs "Sample Input"/"Sample Output" headings (or bare
// Input/Output headings) with the <pre> block that follows each of them.
func ExtractTestCases(content string) ([]model.TestCase, error) {
	doc, err := xhtml.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse description failed: %w", err)
	}

	var (
		cases        []model.TestCase
		pendingInput *string
	)
	walk(doc, func(n *xhtml.Node) {
		switch n.DataAtom {
		case atom.H2, atom.H3, atom.P, atom.Div, atom.Pre:
		default:
			return
		}
		text := strings.ToLower(strings.TrimSpace(textContent(n)))
		heading := n.DataAtom == atom.H2 || n.DataAtom == atom.H3

		switch {
		case strings.Contains(text, "sample input") || (heading && text == "input"):
			if pre := followingPre(n); pre != nil {
				in := strings.TrimSpace(textContent(pre))
				pendingInput = &in
			}
		case pendingInput != nil && (strings.Contains(text, "sample output") || (heading && text == "output")):
			if pre := followingPre(n); pre != nil {
				cases = append(cases, model.TestCase{
					Input:          *pendingInput,
					ExpectedOutput: strings.TrimSpace(textContent(pre)),
				})
				pendingInput = nil
			}
		}
	})
	return cases, nil
}

// walk visits element nodes in document order, skipping script and img subtrees.
func walk(n *xhtml.Node, visit func(*xhtml.Node)) {
	if n.Type == xhtml.ElementNode {
		if n.DataAtom == atom.Script || n.DataAtom == atom.Img {
			return
		}
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// followingPre returns the next sibling <pre>, skipping blank elements in between.
func followingPre(n *xhtml.Node) *xhtml.Node {
	for sib := nextElement(n); sib != nil; sib = nextElement(sib) {
		if sib.DataAtom == atom.Pre {
			return sib
		}
		if strings.TrimSpace(textContent(sib)) != "" {
			return nil
		}
	}
	return nil
}

func nextElement(n *xhtml.Node) *xhtml.Node {
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == xhtml.ElementNode {
			return sib
		}
	}
	return nil
}

func textContent(n *xhtml.Node) string {
	var sb strings.Builder
	var collect func(*xhtml.Node)
	collect = func(node *xhtml.Node) {
		if node.Type == xhtml.TextNode {
			sb.WriteString(node.Data)
			return
		}
		if node.Type == xhtml.ElementNode && node.DataAtom == atom.Script {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
