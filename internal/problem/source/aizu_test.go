package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codebattle/internal/problem/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescription = `
<h1>Sum</h1>
<p>Print the sum.</p>
<h2>Input</h2>
<p>Two integers are given.</p>
<h2>Output</h2>
<p>Print one integer.</p>
<h2>Sample Input 1</h2>
<pre>
3 5
</pre>
<h2>Sample Output 1</h2>
<br>
<pre>
8
</pre>
<h2>Sample Input 2</h2>
<pre>10 20</pre>
<h2>Sample Output 2</h2>
<pre>30</pre>
<script>var x = "sample input";</script>
`

func TestExtractTestCases(t *testing.T) {
	cases, err := ExtractTestCases(sampleDescription)
	require.NoError(t, err)
	assert.Equal(t, []model.TestCase{
		{Input: "3 5", ExpectedOutput: "8"},
		{Input: "10 20", ExpectedOutput: "30"},
	}, cases)
}

func TestExtractTestCasesBareHeadings(t *testing.T) {
	cases, err := ExtractTestCases(`<h3>Input</h3><pre>1</pre><h3>Output</h3><pre>2</pre><p>input</p><pre>9</pre>`)
	require.NoError(t, err)
	assert.Equal(t, []model.TestCase{{Input: "1", ExpectedOutput: "2"}}, cases)
}

func TestExtractTestCasesOutputWithoutInputIgnored(t *testing.T) {
	cases, err := ExtractTestCases(`<h2>Sample Output</h2><pre>1</pre><h2>Sample Input</h2><pre>2</pre>`)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func newAizuServer(t *testing.T, payload interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resources/descriptions/en/ITP1_1_B", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(payload)
	}))
}

func TestFetchByID(t *testing.T) {
	srv := newAizuServer(t, map[string]string{"html": sampleDescription})
	defer srv.Close()

	fetcher := NewAizuFetcher(AizuConfig{BaseURL: srv.URL, Timeout: time.Second}, srv.Client())
	problem, err := fetcher.FetchByID(context.Background(), "ITP1_1_B")
	require.NoError(t, err)
	assert.Equal(t, "Aizu ITP1_1_B", problem.Title)
	assert.Equal(t, "https://onlinejudge.u-aizu.ac.jp/problems/ITP1_1_B", problem.DescriptionURL)
	assert.Len(t, problem.TestCases, 2)
	assert.Contains(t, problem.StarterCode["python"], "ITP1_1_B")
	assert.Len(t, problem.StarterCode, 4)
	assert.Equal(t, model.SourceAizu, problem.Source)
}

func TestFetchFailsClosed(t *testing.T) {
	srv := newAizuServer(t, map[string]string{"literal_description": "no samples here"})
	defer srv.Close()

	fetcher := NewAizuFetcher(AizuConfig{BaseURL: srv.URL, ProblemIDs: []string{"ITP1_1_B"}}, srv.Client())
	_, err := fetcher.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoTestCases)
}

func TestFetchMissingDescription(t *testing.T) {
	srv := newAizuServer(t, map[string]string{"problem_id": "ITP1_1_B"})
	defer srv.Close()

	fetcher := NewAizuFetcher(AizuConfig{BaseURL: srv.URL}, srv.Client())
	_, err := fetcher.FetchByID(context.Background(), "ITP1_1_B")
	assert.ErrorIs(t, err, ErrNoDescription)
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fetcher := NewAizuFetcher(AizuConfig{BaseURL: srv.URL}, srv.Client())
	_, err := fetcher.FetchByID(context.Background(), "ITP1_1_B")
	assert.Error(t, err)
}
