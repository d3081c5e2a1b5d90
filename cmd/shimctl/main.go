package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// ============================================================================
// shimctl - Command-line client for the mpvshim control socket
// ============================================================================
// Usage:
//   shimctl play 42,43 -start 90
//   shimctl pause
//   shimctl playstate Seek 120
//   shimctl cmd MoveUp
//   shimctl volume 35
//
// Options:
//   -socket PATH    Control socket path (default: $XDG_RUNTIME_DIR/mpvshim.sock)
// ============================================================================

// Source mirrors the daemon's event source.
type Source struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// EventEnvelope is the control socket's request line.
type EventEnvelope struct {
	Name      string         `json:"name"`
	Source    Source         `json:"source"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const ticksPerSecond = 10_000_000

var errUsage = errors.New("usage")

func secondsToTicks(s float64) int64 {
	return int64(math.Round(s * ticksPerSecond))
}

func main() {
	socketPath := filepath.Join(xdg.RuntimeDir, "mpvshim.sock")
	timeout := 10 * time.Second

	args := os.Args[1:]
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "-socket", "--socket":
			if len(args) < 2 {
				fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
				os.Exit(1)
			}
			socketPath = args[1]
			args = args[2:]
		case "-timeout", "--timeout":
			if len(args) < 2 {
				fmt.Fprintf(os.Stderr, "error: -timeout requires an argument\n")
				os.Exit(1)
			}
			d, err := time.ParseDuration(args[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: invalid timeout: %v\n", err)
				os.Exit(1)
			}
			timeout = d
			args = args[2:]
		case "-h", "--help", "-help":
			printUsage()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "error: unknown option: %s\n", args[0])
			printUsage()
			os.Exit(1)
		}
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	line, err := buildRequest(args)
	if err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := send(socketPath, line, timeout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

func event(name string, arguments map[string]any) EventEnvelope {
	return EventEnvelope{
		Name:      name,
		Source:    Source{ID: "shimctl", Name: "shimctl"},
		Arguments: arguments,
	}
}

func general(name string, arguments map[string]any) EventEnvelope {
	a := map[string]any{"Name": name}
	if len(arguments) > 0 {
		a["Arguments"] = arguments
	}
	return event("GeneralCommand", a)
}

// buildRequest turns a command line into one request line.
func buildRequest(args []string) ([]byte, error) {
	var ev EventEnvelope

	switch args[0] {
	case "play":
		fs := flag.NewFlagSet("play", flag.ContinueOnError)
		start := fs.Float64("start", -1, "Start offset in seconds")
		mode := fs.String("mode", "PlayNow", "PlayNow|PlayNext|PlayLast")
		audio := fs.Int("audio", -2, "Audio stream index")
		sub := fs.Int("sub", -2, "Subtitle stream index (-1 disables)")
		if len(args) < 2 {
			return nil, fmt.Errorf("play requires item ids")
		}
		ids := args[1]
		if err := fs.Parse(args[2:]); err != nil {
			return nil, err
		}
		a := map[string]any{
			"ItemIds":     strings.Split(ids, ","),
			"PlayCommand": *mode,
		}
		if *start >= 0 {
			a["StartPositionTicks"] = secondsToTicks(*start)
		}
		if *audio > -2 {
			a["AudioStreamIndex"] = *audio
		}
		if *sub > -2 {
			a["SubtitleStreamIndex"] = *sub
		}
		ev = event("Play", a)

	case "pause":
		ev = event("PlayPause", nil)

	case "playstate":
		if len(args) < 2 {
			return nil, fmt.Errorf("playstate requires a command")
		}
		a := map[string]any{"Command": args[1]}
		if args[1] == "Seek" {
			if len(args) < 3 {
				return nil, fmt.Errorf("seek requires a position in seconds")
			}
			s, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid seek position: %w", err)
			}
			a["SeekPositionTicks"] = secondsToTicks(s)
		}
		ev = event("Playstate", a)

	case "cmd":
		if len(args) < 2 {
			return nil, fmt.Errorf("cmd requires a command name")
		}
		a := map[string]any{}
		for _, kv := range args[2:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("argument %q is not key=value", kv)
			}
			a[k] = v
		}
		ev = general(args[1], a)

	case "fullscreen":
		// The daemon treats a nameless GeneralCommand as a fullscreen toggle.
		ev = event("GeneralCommand", nil)

	case "volume":
		if len(args) < 2 {
			return nil, fmt.Errorf("volume requires a value")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid volume: %w", err)
		}
		ev = general("SetVolume", map[string]any{"Volume": v})

	case "send-string":
		if len(args) < 2 {
			return nil, fmt.Errorf("send-string requires text")
		}
		ev = general("SendString", map[string]any{"String": strings.Join(args[1:], " ")})

	case "message":
		if len(args) < 3 {
			return nil, fmt.Errorf("message requires a header and text")
		}
		ev = general("DisplayMessage", map[string]any{"Header": args[1], "Text": strings.Join(args[2:], " ")})

	case "raw":
		if len(args) < 2 {
			return nil, fmt.Errorf("raw requires a JSON event")
		}
		if !json.Valid([]byte(args[1])) {
			return nil, fmt.Errorf("raw: invalid JSON")
		}
		return []byte(args[1]), nil

	case "help":
		return nil, errUsage

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}

	return json.Marshal(ev)
}

func send(socketPath string, line []byte, timeout time.Duration) error {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `shimctl - Send remote-control events to mpvshim

Usage:
  shimctl [options] <command> [args]

Options:
  -socket PATH      Control socket path (default: $XDG_RUNTIME_DIR/mpvshim.sock)
  -timeout DUR      Wait at most DUR for the daemon (default: 10s)

Commands:
  play IDS [-start SEC] [-mode M] [-audio N] [-sub N]
                          Play comma-separated item ids (M: PlayNow|PlayNext|PlayLast)
  pause                   Toggle pause
  playstate CMD [SEC]     PlayPause|Stop|NextTrack|PreviousTrack|Seek SEC
  cmd NAME [K=V ...]      Send a GeneralCommand (e.g. MoveUp, GoToSettings)
  fullscreen              Toggle fullscreen
  volume N                Set volume (0-100)
  send-string TEXT        Type TEXT into the focused window
  message HEADER TEXT     Show a desktop notification
  raw JSON                Send a raw event line
  help                    Show this help message

Examples:
  shimctl play 42 -start 5
  shimctl cmd SetAudioStreamIndex Index=3
  shimctl -socket /run/user/1000/mpvshim.sock playstate Seek 120
`)
}
