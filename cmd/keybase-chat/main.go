package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func main() {
	opts := parseFlags()

	cfg, diag := loadConfig(opts.configPath)
	if diag != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", diag)
	}

	log, err := newDebugLogger(cfg, opts.debugLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "debug log unavailable: %v\n", err)
		log = zap.NewNop()
	}
	defer func() { _ = log.Sync() }()

	ag := agent{binary: opts.keybaseBin, timeout: opts.agentTimeout, log: log}

	// Startup is the one place an agent call may block: there is nothing to
	// show before the current identity resolves, and nothing to do if it
	// cannot.
	user, err := ag.CurrentUser(context.Background())
	if err != nil || user == "" {
		fmt.Fprintf(os.Stderr, "unable to determine current user: %v\n", err)
		os.Exit(1)
	}
	log.Debug("starting", zap.String("user", user), zap.Duration("poll_interval", opts.pollInterval))

	progOpts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if opts.altScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(newModel(cfg, opts, ag, log, user), progOpts...)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "keybase-chat fatal error: %v\n", err)
		os.Exit(1)
	}
}
