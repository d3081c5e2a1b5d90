package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// keyCommandTimeout bounds one xdotool invocation.
const keyCommandTimeout = 2 * time.Second

// xdotoolKeyboard emulates keys on the focused X11 window.
type xdotoolKeyboard struct {
	bin string
	run commandRunner
}

func newXdotoolKeyboard(bin string, run commandRunner) *xdotoolKeyboard {
	if run == nil {
		run = execRunner
	}
	return &xdotoolKeyboard{bin: bin, run: run}
}

func (k *xdotoolKeyboard) exec(args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), keyCommandTimeout)
	defer cancel()
	return k.run(ctx, k.bin, args...)
}

func (k *xdotoolKeyboard) Press(key Key) error {
	return k.exec("keydown", key.Name)
}

func (k *xdotoolKeyboard) Release(key Key) error {
	return k.exec("keyup", key.Name)
}

func (k *xdotoolKeyboard) Type(text string) error {
	if text == "" {
		return nil
	}
	return k.exec("type", "--", text)
}

// logKeyboard records key activity without touching a display.
type logKeyboard struct {
	logger *slog.Logger
}

func (k logKeyboard) Press(key Key) error {
	k.logger.Info("key press", "key", key.String())
	return nil
}

func (k logKeyboard) Release(key Key) error {
	k.logger.Info("key release", "key", key.String())
	return nil
}

func (k logKeyboard) Type(text string) error {
	k.logger.Info("type string", "length", len(text))
	return nil
}

func newKeyboard(cfg KeyboardConfig, logger *slog.Logger) (Keyboard, error) {
	switch cfg.Backend {
	case keyboardBackendXdotool:
		return newXdotoolKeyboard(cfg.XdotoolPath, nil), nil
	case keyboardBackendLog:
		return logKeyboard{logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown keyboard backend %q", cfg.Backend)
	}
}
