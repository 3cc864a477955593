package command

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FileMarker stands in for a field whose value comes from a local file.
const FileMarker = "_file_"

var (
	roomField     = Field{Name: "roomId", Aliases: []string{"room", "room_id"}, Prompt: "room id", Type: FieldString, Place: InBody, Required: true}
	userField     = Field{Name: "userId", Aliases: []string{"user", "user_id"}, Prompt: "user id", Type: FieldString, Place: InBody}
	languageField = Field{Name: "language", Aliases: []string{"lang"}, Prompt: "language (javascript|python|cpp|java)", Type: FieldString, Place: InBody, Required: true}
	sourceField   = Field{Name: "sourceCode", Aliases: []string{"source_code", "code"}, Prompt: "source code", Type: FieldString, Place: InBody, Required: true}
	sourceFile    = Field{Name: "source_file", Aliases: []string{"file"}, Prompt: "source file", Type: FieldFile, Place: Local}
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service: "game", Action: "create", Method: "POST", PathTemplate: "/api/game/create",
			Summary: "open a room",
			Fields:  []Field{userField},
		},
		{
			Service: "game", Action: "join", Method: "POST", PathTemplate: "/api/game/join",
			Summary: "take the second seat of a waiting room",
			Fields:  []Field{roomField, userField},
		},
		{
			Service: "game", Action: "start", Method: "POST", PathTemplate: "/api/game/start",
			Summary: "assign a problem and show it",
			Fields:  []Field{roomField},
		},
		{
			Service: "game", Action: "run", Method: "POST", PathTemplate: "/api/game/run",
			Summary: "try code against the first sample",
			Fields:  []Field{roomField, userField, languageField, sourceField, sourceFile},
		},
		{
			Service: "game", Action: "submit", Method: "POST", PathTemplate: "/api/game/submit",
			Summary: "judge code against every test case",
			Fields:  []Field{roomField, userField, languageField, sourceField, sourceFile},
		},
		{
			Service: "ai", Action: "analyze", Method: "POST", PathTemplate: "/api/ai/analyze",
			Summary: "ask for complexity and feedback",
			Fields: []Field{
				sourceField,
				{Name: "problemTitle", Aliases: []string{"title", "problem_title"}, Prompt: "problem title", Type: FieldString, Place: InBody},
				languageField,
				sourceFile,
			},
		},
		{
			Service: "user", Action: "leaderboard", Method: "GET", PathTemplate: "/api/users/leaderboard",
			Summary: "top players by wins",
			Fields:  []Field{{Name: "limit", Prompt: "limit", Type: FieldInt, Place: InQuery}},
		},
		{
			Service: "user", Action: "stats", Method: "GET", PathTemplate: "/api/users/:id",
			Summary: "wins, matches and rank of a player",
			Fields:  []Field{{Name: "id", Aliases: []string{"user", "user_id", "userId"}, Prompt: "user id", Type: FieldString, Place: InPath, Required: true}},
		},
		{
			Service: "problem", Action: "get", Method: "GET", PathTemplate: "/api/problems/:id",
			Summary: "public view of a problem",
			Fields:  []Field{{Name: "id", Aliases: []string{"problem", "problem_id"}, Prompt: "problem id", Type: FieldString, Place: InPath, Required: true}},
		},
		{
			Service: "problem", Action: "refresh", Method: "POST", PathTemplate: "/api/problems/refresh",
			Summary: "scrape problems into the pool",
			Fields:  []Field{{Name: "count", Prompt: "count", Type: FieldInt, Place: InQuery}},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Key()] = cmd
	}
	return result
}

// Keys returns the sorted command keys.
func Keys(commands map[string]Command) []string {
	keys := make([]string, 0, len(commands))
	for k := range commands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Suggest returns the command keys closest to input, best first.
func Suggest(commands map[string]Command, input string, limit int) []string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return nil
	}
	keys := Keys(commands)
	ranks := fuzzy.RankFindFold(input, keys)
	if len(ranks) == 0 {
		// also try matching the words the other way round, "create game" for "game create"
		parts := strings.Fields(input)
		if len(parts) == 2 {
			ranks = fuzzy.RankFindFold(parts[1]+" "+parts[0], keys)
		}
	}
	if len(ranks) == 0 {
		for _, part := range strings.Fields(input) {
			ranks = append(ranks, fuzzy.RankFindFold(part, keys)...)
		}
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Distance < ranks[j].Distance })

	seen := make(map[string]struct{}, len(ranks))
	out := make([]string, 0, limit)
	for _, r := range ranks {
		if _, ok := seen[r.Target]; ok {
			continue
		}
		seen[r.Target] = struct{}{}
		out = append(out, r.Target)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	if err := resolveFiles(cmd, params); err != nil {
		return RequestSpec{}, err
	}

	path, err := buildPath(cmd, params)
	if err != nil {
		return RequestSpec{}, err
	}

	var body []byte
	if cmd.Method != "GET" && cmd.Method != "DELETE" {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		body, err = json.Marshal(payload)
		if err != nil {
			return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
		}
	}

	return RequestSpec{
		Method:  cmd.Method,
		Path:    path,
		Headers: map[string]string{},
		Body:    body,
	}, nil
}

// resolveFiles loads sourceCode from source_file when asked to.
func resolveFiles(cmd Command, params Params) error {
	if !cmd.HasField(sourceFile.Name) {
		return nil
	}
	code := params.Get(sourceField.Name)
	file := params.Get(sourceFile.Name)
	if (code == "" || code == FileMarker) && file != "" {
		data, err := ReadFile(file)
		if err != nil {
			return err
		}
		params.Set(sourceField.Name, data)
		return nil
	}
	if code == FileMarker {
		return fmt.Errorf("source_file is required")
	}
	return nil
}

func buildPath(cmd Command, params Params) (string, error) {
	path := cmd.PathTemplate
	query := url.Values{}
	for _, field := range cmd.Fields {
		value := params.Get(field.Name)
		switch field.Place {
		case InPath:
			if value == "" {
				return "", fmt.Errorf("missing path parameter: %s", field.Name)
			}
			path = strings.ReplaceAll(path, ":"+field.Name, url.PathEscape(value))
		case InQuery:
			if value == "" {
				continue
			}
			if field.Type == FieldInt {
				if _, err := ParseInt(value); err != nil {
					return "", fmt.Errorf("invalid %s: %w", field.Name, err)
				}
			}
			query.Set(field.Name, value)
		}
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return path, nil
}

func buildPayload(cmd Command, params Params) (map[string]interface{}, error) {
	payload := make(map[string]interface{})
	for _, field := range cmd.Fields {
		if field.Place != InBody {
			continue
		}
		value := params.Get(field.Name)
		if value == "" {
			if field.Required {
				return nil, fmt.Errorf("%s is required", field.Name)
			}
			continue
		}
		if field.Type == FieldInt {
			n, err := ParseInt(value)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", field.Name, err)
			}
			payload[field.Name] = n
			continue
		}
		payload[field.Name] = value
	}
	return payload, nil
}
