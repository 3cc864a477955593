package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"codebattle/internal/cli/command"
	"codebattle/internal/cli/config"
	httpclient "codebattle/internal/cli/http"
	"codebattle/internal/cli/repl"
	"codebattle/internal/cli/state"

	"github.com/chzyer/readline"
)

const defaultConfigPath = "configs/cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 10s)")
	user := flag.String("user", "", "Play as this user id")
	statePath := flag.String("state", "", "Override state path")
	pretty := flag.Bool("pretty", false, "Pretty print JSON response")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *statePath != "" {
		cfg.StatePath = *statePath
	}
	if *pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}

	st, err := state.Load(cfg.StatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load state failed: %v\n", err)
		os.Exit(1)
	}
	if st.UserID == "" {
		st.UserID = cfg.UserID
	}
	if *user != "" {
		st.UserID = *user
	}

	commands := command.Registry()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "battle> ",
		HistoryFile:     cfg.HistoryFile,
		AutoComplete:    repl.NewCompleter(commands),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init readline failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	client := httpclient.New(cfg.BaseURL, cfg.Timeout, func() string {
		return st.UserID
	})

	session := repl.New(repl.Options{
		Client:     client,
		Commands:   commands,
		State:      &st,
		StatePath:  cfg.StatePath,
		PrettyJSON: cfg.PrettyJSON != nil && *cfg.PrettyJSON,
		Reader:     rl,
		Out:        rl.Stdout(),
	})
	if err := session.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
}
