package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// notifySendNotifier shows notifications through notify-send.
type notifySendNotifier struct {
	bin     string
	appName string
	timeout time.Duration
	run     commandRunner
}

func (n *notifySendNotifier) Notify(title, body, icon string) error {
	args := []string{"--app-name", n.appName}
	if n.timeout > 0 {
		args = append(args, "--expire-time", strconv.FormatInt(n.timeout.Milliseconds(), 10))
	}
	if icon != "" {
		args = append(args, "--icon", icon)
	}
	args = append(args, "--", title, body)

	ctx, cancel := context.WithTimeout(context.Background(), keyCommandTimeout)
	defer cancel()
	return n.run(ctx, n.bin, args...)
}

// logNotifier writes notifications to the log.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(title, body, icon string) error {
	n.logger.Info("notification", "title", title, "body", body, "icon", icon)
	return nil
}

func newNotifier(cfg NotifyConfig, logger *slog.Logger) (Notifier, error) {
	switch cfg.Backend {
	case notifyBackendNotifySend:
		return &notifySendNotifier{
			bin:     cfg.Command,
			appName: cfg.AppName,
			timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
			run:     execRunner,
		}, nil
	case notifyBackendLog:
		return logNotifier{logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown notify backend %q", cfg.Backend)
	}
}
