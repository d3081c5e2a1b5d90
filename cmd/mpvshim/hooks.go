package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// commandRunner runs an external program. Tests substitute a recorder.
type commandRunner func(ctx context.Context, name string, args ...string) error

// execRunner runs the program and folds its stderr into the error.
func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// shellHook returns a hook running cmdline through "sh -c", or nil when
// cmdline is empty.
func shellHook(cmdline string, run commandRunner, logger *slog.Logger) func(ctx context.Context) error {
	if strings.TrimSpace(cmdline) == "" {
		return nil
	}
	if run == nil {
		run = execRunner
	}
	return func(ctx context.Context) error {
		logger.Debug("running hook", "cmd", cmdline)
		return run(ctx, "sh", "-c", cmdline)
	}
}
