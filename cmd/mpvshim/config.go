package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the mpvshim daemon.
//
// Defaults come from DefaultConfig, the file is layered on top, and flags
// override both. Validate is called once on the merged result.
type Config struct {
	// mpv JSON IPC connection
	Player PlayerConfig `yaml:"player"`

	// How item ids become playable URLs
	Media MediaConfig `yaml:"media"`

	// Control socket
	IPC IPCConfig `yaml:"ipc"`

	// Metrics, health and timeline websocket
	HTTP HTTPConfig `yaml:"http"`

	// Timeline broadcasts and the idle command
	Timeline TimelineConfig `yaml:"timeline"`

	Keyboard KeyboardConfig `yaml:"keyboard"`
	Notify   NotifyConfig   `yaml:"notify"`
	Mirror   MirrorConfig   `yaml:"mirror"`

	Logging LoggingConfig `yaml:"logging"`
}

type PlayerConfig struct {
	MPVSocket string `yaml:"mpv_socket"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type MediaConfig struct {
	// URLTemplate may use {item_id}, {media_source_id} and {user_id}.
	URLTemplate string `yaml:"url_template"`
	// PreMediaCmd runs through "sh -c" before playback starts.
	PreMediaCmd string `yaml:"pre_media_cmd,omitempty"`
}

type IPCConfig struct {
	SocketPath     string `yaml:"socket_path"`
	ReplyTimeoutMS int    `yaml:"reply_timeout_ms"`
	QueueSize      int    `yaml:"queue_size"`
	SameUserOnly   bool   `yaml:"same_user_only"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

type TimelineConfig struct {
	IntervalMS      int    `yaml:"interval_ms"`
	IdleCmd         string `yaml:"idle_cmd,omitempty"`
	IdleCmdDelaySec int    `yaml:"idle_cmd_delay_sec"`
}

type KeyboardConfig struct {
	Backend     string `yaml:"backend"`
	XdotoolPath string `yaml:"xdotool_path"`
}

type NotifyConfig struct {
	Backend   string `yaml:"backend"`
	Command   string `yaml:"command"`
	Icon      string `yaml:"icon,omitempty"`
	AppName   string `yaml:"app_name"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type MirrorConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfigPath is where the daemon looks for its config file.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "mpvshim", "config.yaml")
}

// runtimePath places sockets under $XDG_RUNTIME_DIR.
func runtimePath(name string) string {
	return filepath.Join(xdg.RuntimeDir, name)
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Player: PlayerConfig{
			MPVSocket: runtimePath("mpvshim-mpv.sock"),
			TimeoutMS: defaultMPVTimeoutMS,
		},
		Media: MediaConfig{
			URLTemplate: defaultURLTemplate,
		},
		IPC: IPCConfig{
			SocketPath:     runtimePath("mpvshim.sock"),
			ReplyTimeoutMS: defaultIPCReplyTimeoutMS,
			QueueSize:      defaultIPCQueueSize,
			SameUserOnly:   true,
		},
		HTTP: HTTPConfig{
			Listen: defaultHTTPListen,
		},
		Timeline: TimelineConfig{
			IntervalMS:      defaultTimelineIntervalMS,
			IdleCmdDelaySec: defaultIdleCmdDelaySec,
		},
		Keyboard: KeyboardConfig{
			Backend:     keyboardBackendXdotool,
			XdotoolPath: "xdotool",
		},
		Notify: NotifyConfig{
			Backend:   notifyBackendNotifySend,
			Command:   "notify-send",
			AppName:   defaultAppName,
			TimeoutMS: defaultNotifyTimeoutMS,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
// Unknown fields are rejected.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	// An empty or comment-only file leaves the defaults in place.
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	default:
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds flag values that take precedence over the config file.
// A nil pointer means the flag was not set.
type FlagOverrides struct {
	MPVSocket       *string
	URLTemplate     *string
	PreMediaCmd     *string
	IPCSocketPath   *string
	HTTPListen      *string
	KeyboardBackend *string
	NotifyBackend   *string
	MirrorEnabled   *bool
	LogLevel        *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.MPVSocket != nil {
		cfg.Player.MPVSocket = *o.MPVSocket
	}
	if o.URLTemplate != nil {
		cfg.Media.URLTemplate = *o.URLTemplate
	}
	if o.PreMediaCmd != nil {
		cfg.Media.PreMediaCmd = *o.PreMediaCmd
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPListen != nil {
		cfg.HTTP.Listen = *o.HTTPListen
	}
	if o.KeyboardBackend != nil {
		cfg.Keyboard.Backend = *o.KeyboardBackend
	}
	if o.NotifyBackend != nil {
		cfg.Notify.Backend = *o.NotifyBackend
	}
	if o.MirrorEnabled != nil {
		cfg.Mirror.Enabled = *o.MirrorEnabled
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
func (c *Config) Validate() error {
	if c.Player.MPVSocket == "" {
		return errors.New("player.mpv_socket must not be empty")
	}
	if c.Player.TimeoutMS <= 0 {
		return errors.New("player.timeout_ms must be > 0")
	}

	if c.Media.URLTemplate == "" {
		return errors.New("media.url_template must not be empty")
	}
	if !strings.Contains(c.Media.URLTemplate, "{item_id}") && !strings.Contains(c.Media.URLTemplate, "{media_source_id}") {
		return errors.New("media.url_template must contain {item_id} or {media_source_id}")
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	if c.IPC.ReplyTimeoutMS <= 0 {
		return errors.New("ipc.reply_timeout_ms must be > 0")
	}
	if c.IPC.QueueSize <= 0 {
		return errors.New("ipc.queue_size must be > 0")
	}

	if c.HTTP.Listen != "" {
		if _, _, err := net.SplitHostPort(c.HTTP.Listen); err != nil {
			return fmt.Errorf("http.listen: %w", err)
		}
	}

	if c.Timeline.IntervalMS < 0 {
		return errors.New("timeline.interval_ms must be >= 0")
	}
	if c.Timeline.IdleCmdDelaySec < 0 {
		return errors.New("timeline.idle_cmd_delay_sec must be >= 0")
	}

	switch c.Keyboard.Backend {
	case keyboardBackendXdotool:
		if c.Keyboard.XdotoolPath == "" {
			return errors.New("keyboard.xdotool_path must not be empty")
		}
	case keyboardBackendLog:
	default:
		return fmt.Errorf("keyboard.backend must be %q or %q", keyboardBackendXdotool, keyboardBackendLog)
	}

	switch c.Notify.Backend {
	case notifyBackendNotifySend:
		if c.Notify.Command == "" {
			return errors.New("notify.command must not be empty")
		}
	case notifyBackendLog:
	default:
		return fmt.Errorf("notify.backend must be %q or %q", notifyBackendNotifySend, notifyBackendLog)
	}
	if c.Notify.TimeoutMS < 0 {
		return errors.New("notify.timeout_ms must be >= 0")
	}

	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

func (c *Config) mpvTimeout() time.Duration {
	return time.Duration(c.Player.TimeoutMS) * time.Millisecond
}

func (c *Config) ipcServerConfig() IPCServerConfig {
	return IPCServerConfig{
		SocketPath:   ExpandPath(c.IPC.SocketPath),
		ReplyTimeout: time.Duration(c.IPC.ReplyTimeoutMS) * time.Millisecond,
		SameUserOnly: c.IPC.SameUserOnly,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
