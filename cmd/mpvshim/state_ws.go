package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// Timeline WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
// Local listeners (timeline-listen, status bars, a companion bridge) connect to
// /timeline and receive JSON text frames wrapped in {type, ts, data}:
//
//   - "timeline_init"    snapshot sent once on connect
//   - "timeline"         playback snapshot (coalesced, latest-wins)
//   - "display_content"  a remote asked to show an item
//   - "idle"             the idle action fired
//
// Every client has its own send queue; a client whose queue is full when a
// frame is fanned out is disconnected so it cannot stall the others.
//
// ============================================================================

type wsDisplayContentData struct {
	SourceID   string `json:"source_id,omitempty"`
	SourceName string `json:"source_name,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	ItemName   string `json:"item_name,omitempty"`
	ItemType   string `json:"item_type,omitempty"`
}

// wsOutboundEvent is a typed frame before serialization.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time
}

// envelope is the wire format for WS frames.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

func (ev wsOutboundEvent) marshal() ([]byte, error) {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return json.Marshal(envelope{Type: ev.Type, Ts: &ts, Data: ev.Data})
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns.
	done chan struct{}

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size (default 32).
	SendBuf int
	// BroadcastBuf is the hub's inbound queue size (default 128).
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes registrations and fan-out until ctx is canceled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("timeline hub starting")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("timeline hub stopping (context canceled)")
			h.closeAllClients()
			h.drainPending()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			timelineClients.Set(float64(n))
			h.logger.Info("timeline client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) fanOut(msg []byte) {
	var slow []*Client

	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.removeClient(c, "slow_client")
	}
}

// addClient hands c to the hub loop. It reports false once the hub has
// stopped.
func (h *Hub) addClient(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// dropClient asks the hub loop to remove c. It returns immediately once the
// hub has stopped.
func (h *Hub) dropClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// drainPending closes clients still queued for registration at shutdown.
func (h *Hub) drainPending() {
	for {
		select {
		case c := <-h.register:
			if c.conn != nil {
				_ = c.conn.Close()
			}
			safeCloseChan(c.send)
		case <-h.unregister:
		default:
			return
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeCloseChan(c.send)
		delete(h.clients, c)
	}
	timelineClients.Set(0)
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	// Closing send stops writePump.
	safeCloseChan(c.send)
	timelineClients.Set(float64(n))
	h.logger.Info("timeline client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

func safeCloseChan(ch chan []byte) {
	defer func() {
		_ = recover() // close of closed channel
	}()
	close(ch)
}

// BroadcastBytes enqueues a serialized frame; it drops the frame when the
// hub queue is full.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("timeline hub queue full, dropping frame", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with the hub's send queue size.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// wsTimelineCoalesceWindow bounds how often "timeline" frames go out.
const wsTimelineCoalesceWindow = 100 * time.Millisecond

func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("timeline "+pump+" exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
		return
	}
	c.logger.Info("timeline "+pump+" exiting", "remote_addr", c.remoteAddr, "error", err)
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", err)
				return
			}
		}
	}
}

// readPump discards inbound frames; a read error unregisters the client.
func (c *Client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("readPump", err)
			if c.hub != nil {
				c.hub.dropClient(c)
			}
			_ = c.conn.Close()
			return
		}
	}
}

// ============================================================================
// HTTP handler
// ============================================================================

type Server struct {
	logger *slog.Logger
	hub    *Hub

	// snapshot produces the timeline_init payload.
	snapshot func() TimelineSnapshot
}

// NewServer constructs the timeline server. Register it on a mux, then run
// Hub().Run and RunBroadcaster.
func NewServer(logger *slog.Logger, snapshot func() TimelineSnapshot, cfg HubConfig) *Server {
	return &Server{
		logger:   logger,
		hub:      NewHub(logger, cfg),
		snapshot: snapshot,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Register installs the websocket handler on mux.
func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleTimelineWS)
}

var upgrader = websocket.Upgrader{
	// Served on loopback only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleTimelineWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("timeline ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)

	// Queue the init frame before registering so it is always first.
	if s.snapshot != nil {
		msg, err := wsOutboundEvent{Type: "timeline_init", Data: s.snapshot()}.marshal()
		if err != nil {
			s.logger.Warn("timeline init marshal failed", "error", err)
		} else {
			client.send <- msg
		}
	}

	if !s.hub.addClient(client) {
		s.logger.Info("timeline hub stopped, closing connection", "remote_addr", r.RemoteAddr)
		_ = conn.Close()
		return
	}

	// The pumps outlive the request; net/http cancels r.Context() when the
	// handler returns. The hub and the connection errors end them.
	go client.writePump(context.Background())
	go client.readPump()
}

// ============================================================================
// Broadcaster
// ============================================================================

// coalescer holds the latest pending "timeline" frame and the timer that
// flushes it. It flushes at most once per window even under a steady stream
// of updates.
type coalescer struct {
	window  time.Duration
	pending *wsOutboundEvent
	timer   *time.Timer
}

func (c *coalescer) C() <-chan time.Time {
	if c.timer == nil {
		return nil
	}
	return c.timer.C
}

func (c *coalescer) put(ev wsOutboundEvent) {
	c.pending = &ev
	if c.timer == nil {
		c.timer = time.NewTimer(c.window)
	}
}

func (c *coalescer) take() (wsOutboundEvent, bool) {
	if c.pending == nil {
		return wsOutboundEvent{}, false
	}
	ev := *c.pending
	c.pending = nil
	return ev, true
}

func (c *coalescer) stop() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// RunBroadcaster serializes broadcasts and hands them to the hub. It runs as
// a single goroutine until ctx is canceled or src is closed.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	send := func(ev wsOutboundEvent) {
		msg, err := ev.marshal()
		if err != nil {
			logger.Warn("timeline broadcaster marshal failed", "error", err, "type", ev.Type)
			return
		}
		hub.BroadcastBytes(msg)
	}

	co := &coalescer{window: wsTimelineCoalesceWindow}
	flush := func() {
		if ev, ok := co.take(); ok {
			send(ev)
		}
	}
	defer co.stop()

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case <-co.C():
			co.stop()
			flush()

		case b, ok := <-src:
			if !ok {
				flush()
				logger.Info("timeline broadcaster stopping (source ended)")
				return
			}

			ev, ok := convertBroadcast(b)
			if !ok {
				continue
			}
			if ev.Type == "timeline" {
				co.put(ev)
				continue
			}

			// Keep ordering: a pending timeline frame goes out first.
			co.stop()
			flush()
			send(ev)
		}
	}
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastTimeline:
		return wsOutboundEvent{Type: "timeline", Data: ev.Snapshot, At: ev.At}, true

	case BroadcastDisplayContent:
		return wsOutboundEvent{
			Type: "display_content",
			Data: wsDisplayContentData{
				SourceID:   ev.Source.ID,
				SourceName: ev.Source.Name,
				ItemID:     ev.ItemID,
				ItemName:   ev.ItemName,
				ItemType:   ev.ItemType,
			},
			At: ev.At,
		}, true

	case BroadcastIdle:
		return wsOutboundEvent{Type: "idle", At: ev.At}, true

	default:
		return wsOutboundEvent{}, false
	}
}
