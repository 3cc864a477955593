package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"codebattle/internal/cli/command"
	httpclient "codebattle/internal/cli/http"
	"codebattle/internal/cli/state"
	pkgerrors "codebattle/pkg/errors"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const prompt = "battle> "

// LineReader is the subset of *readline.Instance the session needs.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(p string)
}

// Options configures a Session.
type Options struct {
	Client     *httpclient.Client
	Commands   map[string]command.Command
	State      *state.State
	StatePath  string
	PrettyJSON bool
	Reader     LineReader
	Out        io.Writer
}

// Session holds REPL state.
type Session struct {
	client     *httpclient.Client
	commands   map[string]command.Command
	state      *state.State
	statePath  string
	prettyJSON bool
	reader     LineReader
	out        io.Writer
}

func New(opts Options) *Session {
	st := opts.State
	if st == nil {
		st = &state.State{}
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Session{
		client:     opts.Client,
		commands:   opts.Commands,
		state:      st,
		statePath:  opts.StatePath,
		prettyJSON: opts.PrettyJSON,
		reader:     opts.Reader,
		out:        out,
	}
}

// NewCompleter builds tab completion for commands and system words.
func NewCompleter(commands map[string]command.Command) *readline.PrefixCompleter {
	actions := make(map[string][]readline.PrefixCompleterInterface)
	var services []string
	for _, key := range command.Keys(commands) {
		cmd := commands[key]
		if _, ok := actions[cmd.Service]; !ok {
			services = append(services, cmd.Service)
		}
		actions[cmd.Service] = append(actions[cmd.Service], readline.PcItem(cmd.Action))
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(services)+4)
	for _, svc := range services {
		items = append(items, readline.PcItem(svc, actions[svc]...))
	}
	items = append(items,
		readline.PcItem("set",
			readline.PcItem("user"),
			readline.PcItem("room"),
			readline.PcItem("base"),
			readline.PcItem("timeout"),
		),
		readline.PcItem("show", readline.PcItem("state"), readline.PcItem("config")),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
	return readline.NewPrefixCompleter(items...)
}

// Run reads lines until exit or end of input.
func (s *Session) Run(ctx context.Context) error {
	for {
		s.reader.SetPrompt(prompt)
		line, err := s.reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if done, handled := s.handleSystemCommand(line); handled {
			if done {
				return nil
			}
			continue
		}

		if err := s.handleCommand(ctx, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) handleSystemCommand(line string) (done bool, handled bool) {
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		return true, true
	case "help":
		s.printHelp()
		return false, true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return false, true
	}
	if strings.HasPrefix(line, "show ") {
		s.handleShow(strings.TrimSpace(strings.TrimPrefix(line, "show ")))
		return false, true
	}
	return false, false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		s.printLine("usage: set user|room|base|timeout <value>")
		return
	}
	switch parts[0] {
	case "base":
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "user":
		s.state.UserID = parts[1]
		s.saveState()
		s.printLine("user set to %s", parts[1])
	case "room":
		s.state.LastRoomID = parts[1]
		s.saveState()
		s.printLine("room set to %s", parts[1])
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args string) {
	switch args {
	case "state":
		s.printLine("user: %s", orEmpty(s.state.UserID))
		s.printLine("room: %s", orEmpty(s.state.LastRoomID))
	case "config":
		s.printLine("baseURL: %s", s.client.BaseURL())
		s.printLine("statePath: %s", s.statePath)
	default:
		s.printLine("usage: show state|config")
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) < 2 {
		return s.unknown(line)
	}
	key := tokens[0] + " " + tokens[1]
	cmd, ok := s.commands[key]
	if !ok {
		return s.unknown(key)
	}
	params := command.Params{}
	for _, token := range tokens[2:] {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}
	params.Canonicalize(cmd.Fields)

	s.applyDefaults(cmd, params)
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Headers, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	s.rememberRoom(cmd, params, resp.Body)
	return nil
}

func (s *Session) unknown(input string) error {
	suggestions := command.Suggest(s.commands, input, 3)
	if len(suggestions) == 0 {
		return fmt.Errorf("unknown command: %s, type help for the list", input)
	}
	return fmt.Errorf("unknown command: %s, did you mean: %s", input, strings.Join(suggestions, ", "))
}

// applyDefaults fills room and user from the saved state.
func (s *Session) applyDefaults(cmd command.Command, params command.Params) {
	if cmd.HasField("roomId") && params.Get("roomId") == "" && s.state.LastRoomID != "" {
		params.Set("roomId", s.state.LastRoomID)
	}
	if cmd.HasField("userId") && params.Get("userId") == "" && s.state.UserID != "" {
		params.Set("userId", s.state.UserID)
	}
	if cmd.Key() == "user stats" && params.Get("id") == "" && s.state.UserID != "" {
		params.Set("id", s.state.UserID)
	}
	if cmd.HasField("source_file") && params.Get("source_file") != "" && params.Get("sourceCode") == "" {
		params.Set("sourceCode", command.FileMarker)
	}
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	defer s.reader.SetPrompt(prompt)
	for _, field := range cmd.Fields {
		if !field.Required || params.Get(field.Name) != "" {
			continue
		}
		s.reader.SetPrompt(field.Prompt + ": ")
		value, err := s.reader.Readline()
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		params.Set(field.Name, strings.TrimSpace(value))
	}
	return nil
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if len(resp.Body) == 0 {
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

// rememberRoom keeps the room of a successful create or join for later commands.
func (s *Session) rememberRoom(cmd command.Command, params command.Params, body []byte) {
	if cmd.Service != "game" || (cmd.Action != "create" && cmd.Action != "join") {
		return
	}
	var resp struct {
		Code pkgerrors.ErrorCode `json:"code"`
		Data struct {
			RoomID string `json:"roomId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return
	}
	roomID := resp.Data.RoomID
	if roomID == "" {
		roomID = params.Get("roomId")
	}
	if resp.Code != pkgerrors.Success || roomID == "" {
		return
	}
	s.state.LastRoomID = roomID
	s.saveState()
}

func (s *Session) saveState() {
	if s.statePath == "" {
		return
	}
	if err := state.Save(s.statePath, *s.state); err != nil {
		s.printLine("save state failed: %v", err)
	}
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value ...")
	s.printLine("system: help | exit | set user|room|base|timeout | show state|config")
	s.printLine("commands:")
	for _, key := range command.Keys(s.commands) {
		s.printLine("  %-20s %s", key, s.commands[key].Summary)
	}
	s.printLine("examples:")
	s.printLine("  set user alice")
	s.printLine("  game create")
	s.printLine("  game submit language=python source_file=./solution.py")
	s.printLine("  ai analyze language=cpp title=\"Two Sum\" source_file=./main.cpp")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

func orEmpty(v string) string {
	if v == "" {
		return "<empty>"
	}
	return v
}
