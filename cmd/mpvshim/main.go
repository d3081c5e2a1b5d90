package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

// idleCmdTimeout bounds one run of the idle command.
const idleCmdTimeout = 30 * time.Second

func printVersion() {
	fmt.Printf("mpvshim v%s\n", version)
	fmt.Println("Remote-control command shim for mpv")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  mpvshim [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Receives remote-control events (Play, GeneralCommand, Playstate,")
	fmt.Println("  PlayPause) on a local Unix socket and drives mpv over its JSON IPC")
	fmt.Println("  socket, the OSD menu, keyboard emulation and desktop notifications.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Printf("        YAML config file (default %q)\n", DefaultConfigPath())
	fmt.Println("        A missing default file is not an error")
	fmt.Println()
	fmt.Println("  -mpv-socket string")
	fmt.Println("        mpv --input-ipc-server socket path")
	fmt.Println()
	fmt.Println("  -url-template string")
	fmt.Println("        Playable URL template ({item_id}, {media_source_id}, {user_id})")
	fmt.Println()
	fmt.Println("  -pre-media-cmd string")
	fmt.Println("        Shell command to run before playback starts")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Control socket path")
	fmt.Println()
	fmt.Println("  -http-listen string")
	fmt.Println("        Address for /metrics, /healthz and /timeline (empty disables)")
	fmt.Println()
	fmt.Println("  -keyboard string")
	fmt.Println("        Keyboard backend: xdotool|log")
	fmt.Println()
	fmt.Println("  -notify string")
	fmt.Println("        Notification backend: notify-send|log")
	fmt.Println()
	fmt.Println("  -mirror")
	fmt.Println("        Broadcast DisplayContent requests to timeline listeners")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  mpv --idle --input-ipc-server=$XDG_RUNTIME_DIR/mpvshim-mpv.sock &")
	fmt.Println("  mpvshim -log-level debug")
	fmt.Println()
	fmt.Println("  # Resolve item ids against a media server")
	fmt.Println("  mpvshim -url-template 'http://media.local:8096/Videos/{item_id}/stream?static=true'")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath      = flag.String("config", "", "YAML config file")
		mpvSocket       = flag.String("mpv-socket", "", "mpv JSON IPC socket path")
		urlTemplate     = flag.String("url-template", "", "Playable URL template")
		preMediaCmd     = flag.String("pre-media-cmd", "", "Shell command to run before playback")
		ipcSocket       = flag.String("ipc-socket", "", "Control socket path")
		httpListen      = flag.String("http-listen", "", "HTTP listen address")
		keyboardBackend = flag.String("keyboard", "", "Keyboard backend: xdotool|log")
		notifyBackend   = flag.String("notify", "", "Notification backend: notify-send|log")
		mirror          = flag.Bool("mirror", false, "Broadcast DisplayContent requests")
		logLevelStr     = flag.String("log-level", "", "Log level: error, warn, info, debug")
		_               = flag.Bool("version", false, "Print version and exit")
		_               = flag.Bool("help", false, "Print help message")
	)
	flag.Usage = printUsage
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Only flags given on the command line override the file.
	var o FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mpv-socket":
			o.MPVSocket = mpvSocket
		case "url-template":
			o.URLTemplate = urlTemplate
		case "pre-media-cmd":
			o.PreMediaCmd = preMediaCmd
		case "ipc-socket":
			o.IPCSocketPath = ipcSocket
		case "http-listen":
			o.HTTPListen = httpListen
		case "keyboard":
			o.KeyboardBackend = keyboardBackend
		case "notify":
			o.NotifyBackend = notifyBackend
		case "mirror":
			o.MirrorEnabled = mirror
		case "log-level":
			o.LogLevel = logLevelStr
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(os.Stdout, logLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("mpvshim stopped", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads path, or the default config file when path is empty.
// A missing default file yields DefaultConfig.
func loadConfig(path string) (Config, error) {
	if path != "" {
		return LoadConfigFile(path)
	}
	cfg, err := LoadConfigFile(DefaultConfigPath())
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

func run(cfg Config, logger *slog.Logger) error {
	mpv := NewMPVClient(ExpandPath(cfg.Player.MPVSocket), cfg.mpvTimeout(), logger.With("component", "mpv"))
	defer mpv.Close()

	player := newMPVPlayer(mpv, logger.With("component", "player"))

	keyboard, err := newKeyboard(cfg.Keyboard, logger.With("component", "keyboard"))
	if err != nil {
		return err
	}
	notifier, err := newNotifier(cfg.Notify, logger.With("component", "notify"))
	if err != nil {
		return err
	}

	broadcasts := make(chan StateBroadcast, 64)

	var timeline *timelinePublisher
	var fire func()
	if idleHook := shellHook(cfg.Timeline.IdleCmd, nil, logger); idleHook != nil {
		fire = func() {
			logger.Info("idle timeout reached; running idle command")
			timeline.publish(BroadcastIdle{At: time.Now().UTC()})
			ctx, cancel := context.WithTimeout(context.Background(), idleCmdTimeout)
			defer cancel()
			if err := idleHook(ctx); err != nil {
				logger.Warn("idle command failed", "error", err)
			}
		}
	}
	idle := newIdleTimer(time.Duration(cfg.Timeline.IdleCmdDelaySec)*time.Second, fire)
	timeline = newTimelinePublisher(player, broadcasts, idle, logger.With("component", "timeline"))

	collab := Collaborators{
		Player:     player,
		Menu:       newOSDMenu(player, defaultMenuItems(player), defaultMenuOSDDuration, logger.With("component", "menu")),
		Keyboard:   keyboard,
		Notifier:   notifier,
		Timeline:   timeline,
		Loader:     newTemplateLoader(cfg.Media.URLTemplate),
		PreMedia:   shellHook(cfg.Media.PreMediaCmd, nil, logger),
		NotifyIcon: cfg.Notify.Icon,
	}
	if cfg.Mirror.Enabled {
		collab.Mirror = timeline
	}

	registry, err := NewRegistry(NewCommands(collab, logger).Bindings()...)
	if err != nil {
		return fmt.Errorf("build event registry: %w", err)
	}
	dispatcher := NewDispatcher(registry, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inbound := make(chan InboundEvent, cfg.IPC.QueueSize)
	ws := NewServer(logger.With("component", "timeline_ws"), player.Snapshot, HubConfig{})

	logger.Info("starting mpvshim",
		"version", version,
		"events", registry.Names(),
		"mpv_socket", cfg.Player.MPVSocket,
		"ipc_socket", cfg.IPC.SocketPath,
		"http_listen", cfg.HTTP.Listen,
		"keyboard", cfg.Keyboard.Backend,
		"notify", cfg.Notify.Backend,
		"mirror", cfg.Mirror.Enabled)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runDispatcher(gctx, inbound, dispatcher, logger)
		return nil
	})
	g.Go(func() error {
		return runIPCServer(gctx, cfg.ipcServerConfig(), inbound, logger.With("component", "ipc"))
	})
	g.Go(func() error {
		ws.Hub().Run(gctx)
		return nil
	})
	g.Go(func() error {
		RunBroadcaster(gctx, ws.Hub(), broadcasts, logger)
		return nil
	})
	g.Go(func() error {
		return timeline.Run(gctx, time.Duration(cfg.Timeline.IntervalMS)*time.Millisecond)
	})
	if cfg.HTTP.Listen != "" {
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Listen, newHTTPMux(ws), logger.With("component", "http"))
		})
	}

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
