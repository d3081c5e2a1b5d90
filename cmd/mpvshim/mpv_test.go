package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMPVServer speaks mpv's JSON IPC on a unix socket.
type fakeMPVServer struct {
	t    *testing.T
	path string
	ln   net.Listener

	// reply computes the data and error fields for a command.
	reply func(cmd []any) (any, string)

	mu       sync.Mutex
	commands [][]any
	// dropAfter closes each connection after this many requests (0 = never).
	dropAfter int
	accepted  int
}

func newFakeMPVServer(t *testing.T, reply func(cmd []any) (any, string)) *fakeMPVServer {
	t.Helper()
	dir, err := os.MkdirTemp("", "mpv")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	s := &fakeMPVServer{t: t, path: filepath.Join(dir, "mpv.sock"), reply: reply}
	s.ln, err = net.Listen("unix", s.path)
	require.NoError(t, err)
	t.Cleanup(func() { s.ln.Close() })

	go s.serve()
	return s
}

func (s *fakeMPVServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.accepted++
		s.mu.Unlock()
		go s.handle(conn)
	}
}

func (s *fakeMPVServer) handle(conn net.Conn) {
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	n := 0
	for sc.Scan() {
		var req mpvRequest
		if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
			return
		}
		s.mu.Lock()
		s.commands = append(s.commands, req.Command)
		drop := s.dropAfter
		s.mu.Unlock()

		n++
		if drop > 0 && n > drop {
			return
		}

		data, errStr := s.reply(req.Command)
		// Unsolicited traffic the client must skip.
		fmt.Fprintf(conn, "{\"event\":\"property-change\",\"name\":\"time-pos\"}\n")
		fmt.Fprintf(conn, "{\"request_id\":%d,\"error\":\"success\"}\n", req.RequestID+1000)

		out, _ := json.Marshal(map[string]any{"request_id": req.RequestID, "error": errStr, "data": data})
		conn.Write(append(out, '\n'))
	}
}

func (s *fakeMPVServer) Commands() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.commands...)
}

func okReply(data any) func([]any) (any, string) {
	return func([]any) (any, string) { return data, "success" }
}

func TestMPVClient_CommandSkipsEventsAndForeignReplies(t *testing.T) {
	srv := newFakeMPVServer(t, okReply(42.5))
	c := NewMPVClient(srv.path, time.Second, discardLogger())
	defer c.Close()

	var vol float64
	require.NoError(t, c.GetProperty("volume", &vol))
	assert.Equal(t, 42.5, vol)

	require.NoError(t, c.SetProperty("pause", true))

	cmds := srv.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, []any{"get_property", "volume"}, cmds[0])
	assert.Equal(t, []any{"set_property", "pause", true}, cmds[1])
}

func TestMPVClient_ErrorReply(t *testing.T) {
	srv := newFakeMPVServer(t, func([]any) (any, string) { return nil, "property unavailable" })
	c := NewMPVClient(srv.path, time.Second, discardLogger())
	defer c.Close()

	var pos float64
	err := c.GetProperty("time-pos", &pos)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "property unavailable")
	assert.Contains(t, err.Error(), "time-pos")
}

func TestMPVClient_NotConnected(t *testing.T) {
	c := NewMPVClient(filepath.Join(t.TempDir(), "missing.sock"), 100*time.Millisecond, discardLogger())

	_, err := c.Command("stop")
	assert.True(t, errors.Is(err, ErrNotConnected), "got %v", err)
}

func TestMPVClient_ReconnectsAfterBrokenConnection(t *testing.T) {
	srv := newFakeMPVServer(t, okReply(nil))
	srv.dropAfter = 1
	c := NewMPVClient(srv.path, time.Second, discardLogger())
	defer c.Close()

	_, err := c.Command("stop")
	require.NoError(t, err)

	// The server hangs up on the second request of a connection.
	_, err = c.Command("stop")
	require.Error(t, err)

	_, err = c.Command("stop")
	require.NoError(t, err)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, 2, srv.accepted)
}

func TestMPVClient_ReadTimeout(t *testing.T) {
	dir, err := os.MkdirTemp("", "mpv")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "mute.sock")

	// A server that accepts and never answers.
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	c := NewMPVClient(path, 50*time.Millisecond, discardLogger())
	defer c.Close()

	start := time.Now()
	_, err = c.Command("stop")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
