package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// ErrNotConnected is returned when mpv's socket cannot be reached.
var ErrNotConnected = errors.New("mpv not connected")

// MPVCommander is the subset of mpv's JSON IPC the player adapter needs.
// This allows for mocking in tests.
type MPVCommander interface {
	Command(args ...any) (json.RawMessage, error)
	SetProperty(name string, value any) error
	GetProperty(name string, out any) error
	Close() error
}

type mpvRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type mpvResponse struct {
	Event     string          `json:"event,omitempty"`
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
}

// MPVClient talks to mpv over its --input-ipc-server socket.
//
// Requests are serialized; each one waits for the reply carrying its
// request_id. Asynchronous event lines are skipped. A broken connection is
// dropped and redialed on the next request.
type MPVClient struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	path    string
	timeout time.Duration
	nextID  int64
	logger  *slog.Logger
}

// NewMPVClient creates a client. It does not dial until the first request.
func NewMPVClient(socketPath string, timeout time.Duration, logger *slog.Logger) *MPVClient {
	return &MPVClient{
		path:    socketPath,
		timeout: timeout,
		logger:  logger,
	}
}

// connectLocked dials mpv. c.mu must be held.
func (c *MPVClient) connectLocked() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", c.path, c.timeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.logger.Info("connected to mpv", "socket", c.path)
	return nil
}

// dropLocked discards a broken connection. c.mu must be held.
func (c *MPVClient) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

// Command runs an mpv command and returns its data field.
func (c *MPVClient) Command(args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(); err != nil {
		return nil, err
	}

	c.nextID++
	id := c.nextID

	payload, err := json.Marshal(mpvRequest{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}
	payload = append(payload, '\n')

	_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	defer func() {
		if c.conn != nil {
			_ = c.conn.SetDeadline(time.Time{})
		}
	}()

	if _, err := c.conn.Write(payload); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("write command: %w", err)
	}

	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			c.dropLocked()
			return nil, fmt.Errorf("read reply: %w", err)
		}

		var resp mpvResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			c.logger.Debug("mpv: skipping unparsable line", "error", err)
			continue
		}
		if resp.Event != "" {
			c.logger.Debug("mpv event", "event", resp.Event)
			continue
		}
		if resp.RequestID != id {
			continue
		}
		if resp.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", args[0], resp.Error)
		}
		return resp.Data, nil
	}
}

// SetProperty sets an mpv property.
func (c *MPVClient) SetProperty(name string, value any) error {
	if _, err := c.Command("set_property", name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// GetProperty reads an mpv property into out.
func (c *MPVClient) GetProperty(name string, out any) error {
	data, err := c.Command("get_property", name)
	if err != nil {
		return fmt.Errorf("get %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Close closes the connection.
func (c *MPVClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
	return nil
}
