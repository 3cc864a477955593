package model

import (
	"fmt"
	"time"
)

// TestCase is one input/expected-output pair.
type TestCase struct {
	Input          string `json:"input" bson:"input"`
	ExpectedOutput string `json:"expectedOutput" bson:"expectedOutput"`
}

// Problem is a playable problem definition.
type Problem struct {
	ProblemID      string            `json:"problemId" bson:"_id"`
	Title          string            `json:"title" bson:"title"`
	Description    string            `json:"description" bson:"description"`
	DescriptionURL string            `json:"descriptionUrl,omitempty" bson:"descriptionUrl,omitempty"`
	TestCases      []TestCase        `json:"testCases" bson:"testCases"`
	StarterCode    map[string]string `json:"starterCode" bson:"starterCode"`
	Source         string            `json:"source" bson:"source"`
	CreatedAt      time.Time         `json:"createdAt" bson:"createdAt"`
}

// PublicProblem is what players see; test cases stay hidden.
type PublicProblem struct {
	ProblemID      string            `json:"problemId"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	DescriptionURL string            `json:"descriptionUrl,omitempty"`
	StarterCode    map[string]string `json:"starterCode"`
	SampleCount    int               `json:"sampleCount"`
}

func (p *Problem) Public() PublicProblem {
	return PublicProblem{
		ProblemID:      p.ProblemID,
		Title:          p.Title,
		Description:    p.Description,
		DescriptionURL: p.DescriptionURL,
		StarterCode:    p.StarterCode,
		SampleCount:    len(p.TestCases),
	}
}

const (
	SourceAizu     = "aizu"
	SourceFallback = "fallback"

	FallbackProblemID = "sum-two-integers"
)

// StarterCodeFor returns stdin-reading templates for the supported languages.
func StarterCodeFor(problemID string) map[string]string {
	return map[string]string{
		"javascript": fmt.Sprintf("// Solve Aizu Problem %s\nconst fs = require('fs');\nconst input = fs.readFileSync('/dev/stdin').toString().trim().split('\\n');\n// Write code here\n", problemID),
		"python":     fmt.Sprintf("# Solve Aizu Problem %s\nimport sys\nlines = sys.stdin.readlines()\n# Write code here\n", problemID),
		"cpp":        fmt.Sprintf("// Solve Aizu Problem %s\n#include <iostream>\nusing namespace std;\nint main() {\n    return 0;\n}", problemID),
		"java":       fmt.Sprintf("// Solve Aizu Problem %s\nimport java.util.Scanner;\npublic class Main {\n    public static void main(String[] args) {\n        Scanner sc = new Scanner(System.in);\n    }\n}", problemID),
	}
}

// Fallback is the built-in problem used when no other source can supply one.
func Fallback() *Problem {
	return &Problem{
		ProblemID:   FallbackProblemID,
		Title:       "Sum of Two Integers",
		Description: "<p>Read two integers a and b separated by a space and print a + b.</p>",
		TestCases: []TestCase{
			{Input: "2 3", ExpectedOutput: "5"},
			{Input: "10 20", ExpectedOutput: "30"},
			{Input: "-4 9", ExpectedOutput: "5"},
		},
		StarterCode: map[string]string{
			"javascript": "const fs = require('fs');\nconst [a, b] = fs.readFileSync('/dev/stdin').toString().trim().split(/\\s+/).map(Number);\n// print a + b\n",
			"python":     "import sys\na, b = map(int, sys.stdin.read().split())\n# print a + b\n",
			"cpp":        "#include <iostream>\nusing namespace std;\nint main() {\n    long long a, b;\n    cin >> a >> b;\n    return 0;\n}",
			"java":       "import java.util.Scanner;\npublic class Main {\n    public static void main(String[] args) {\n        Scanner sc = new Scanner(System.in);\n    }\n}",
		},
		Source: SourceFallback,
	}
}
