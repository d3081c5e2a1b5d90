package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// ============================================================================
// Control Socket - Unix Domain Socket Interface
// ============================================================================
// The control socket lets local clients (shimctl, scripts, a companion bridge)
// submit remote events to the dispatcher.
//
// Protocol: Line-delimited JSON
//   - Client sends: {"name": "Playstate", "source": {...}, "arguments": {...}}
//   - Server responds once the event was handled:
//     {"status": "ok"} or {"status": "error", "error": "msg"}
// ============================================================================

// maxIPCLine bounds a single request line.
const maxIPCLine = 1 << 20

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status string `json:"status"`          // "ok" or "error"
	Error  string `json:"error,omitempty"` // error message if status == "error"
}

// IPCServerConfig controls the control socket.
type IPCServerConfig struct {
	SocketPath   string
	ReplyTimeout time.Duration
	SameUserOnly bool
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func runIPCServer(ctx context.Context, cfg IPCServerConfig, events chan<- InboundEvent, logger *slog.Logger) error {
	// Remove a stale socket left by a previous run
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.SocketPath, err)
	}
	defer listener.Close()
	defer os.Remove(cfg.SocketPath)

	if err := os.Chmod(cfg.SocketPath, 0o600); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", cfg.SocketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		cred, credErr := peerCredentials(conn)
		if err := admitPeer(cfg.SameUserOnly, cred, credErr, uint32(os.Getuid())); err != nil {
			logger.Warn("IPC connection rejected", "error", err, "peer_uid", cred.UID, "peer_pid", cred.PID)
			ipcConnectionsTotal.WithLabelValues("rejected").Inc()
			_ = conn.Close()
			continue
		}
		if credErr != nil {
			logger.Debug("IPC peer credentials unavailable", "error", credErr)
		}
		ipcConnectionsTotal.WithLabelValues("accepted").Inc()

		go handleIPCConnection(ctx, conn, cred, cfg.ReplyTimeout, events, logger)
	}
}

// admitPeer decides whether a control socket peer may submit events. With
// sameUserOnly set, a peer whose credentials cannot be read is rejected.
func admitPeer(sameUserOnly bool, cred peerCred, credErr error, uid uint32) error {
	if !sameUserOnly {
		return nil
	}
	if credErr != nil {
		return fmt.Errorf("same_user_only is set but peer credentials are unavailable: %w", credErr)
	}
	if cred.UID != uid {
		return fmt.Errorf("peer uid %d does not match %d", cred.UID, uid)
	}
	return nil
}

// handleIPCConnection handles a single IPC connection
func handleIPCConnection(ctx context.Context, conn net.Conn, cred peerCred, replyTimeout time.Duration, events chan<- InboundEvent, logger *slog.Logger) {
	defer conn.Close()

	// Closing the connection on shutdown unblocks the scanner.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logger = logger.With("peer_pid", cred.PID, "peer_uid", cred.UID)
	logger.Debug("IPC connection")

	if replyTimeout <= 0 {
		replyTimeout = defaultIPCReplyTimeout
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxIPCLine)
	encoder := json.NewEncoder(conn)

	respond := func(resp IPCResponse) {
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		logger.Debug("IPC received", "line", line)

		src, ev, err := UnmarshalEvent([]byte(line))
		if err != nil {
			respond(IPCResponse{Status: "error", Error: fmt.Sprintf("parse event: %v", err)})
			continue
		}

		reply := make(chan error, 1)
		select {
		case events <- InboundEvent{Source: src, Event: ev, Reply: reply}:
		default:
			respond(IPCResponse{Status: "error", Error: "event queue full"})
			continue
		}

		timer := time.NewTimer(replyTimeout)
		select {
		case err := <-reply:
			if err != nil {
				respond(IPCResponse{Status: "error", Error: err.Error()})
			} else {
				respond(IPCResponse{Status: "ok"})
			}
		case <-timer.C:
			respond(IPCResponse{Status: "error", Error: "timed out waiting for event result"})
		case <-ctx.Done():
			timer.Stop()
			return
		}
		timer.Stop()
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		logger.Debug("IPC read error", "error", err)
	}
	logger.Debug("IPC connection closed")
}

// ============================================================================
// IPC Client
// ============================================================================

// SendIPCEvent sends an event to the daemon and waits for its result.
func SendIPCEvent(socketPath string, src Source, ev Event, timeout time.Duration) error {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	data, err := MarshalEvent(src, ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}
	return nil
}
