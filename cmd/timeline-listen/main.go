package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// frame is the daemon's websocket envelope.
type frame struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type timelineData struct {
	ItemID        string `json:"item_id"`
	PositionTicks int64  `json:"position_ticks"`
	DurationTicks int64  `json:"duration_ticks"`
	Paused        bool   `json:"paused"`
	Muted         bool   `json:"muted"`
	Volume        int    `json:"volume"`
	QueueIndex    int    `json:"queue_index"`
	QueueLength   int    `json:"queue_length"`
}

const ticksPerSecond = 10_000_000

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/timeline", "mpvshim timeline websocket URL")
		raw   = flag.Bool("raw", false, "Print frames as raw JSON")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("connected! (press Ctrl+C to exit)")

	// Control frames and the close frame on shutdown share the connection.
	var writeMu sync.Mutex

	// The daemon pings every 20s; answering resets our deadline too.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Println(string(message))
				continue
			}
			printFrame(message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

func printFrame(message []byte) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	switch f.Type {
	case "timeline", "timeline_init":
		var t timelineData
		if err := json.Unmarshal(f.Data, &t); err != nil {
			fmt.Printf("[%s] %s\n", f.Type, string(f.Data))
			return
		}
		state := "PLAYING"
		if t.Paused {
			state = "PAUSED"
		}
		if t.ItemID == "" {
			state = "IDLE"
		}
		fmt.Printf("[TIMELINE] %s item=%s pos=%.1fs/%.1fs vol=%d muted=%v queue=%d/%d\n",
			state, t.ItemID,
			float64(t.PositionTicks)/ticksPerSecond, float64(t.DurationTicks)/ticksPerSecond,
			t.Volume, t.Muted, t.QueueIndex+1, t.QueueLength)

	case "display_content":
		fmt.Printf("[DISPLAY] %s\n", string(f.Data))

	case "idle":
		fmt.Printf("[IDLE]\n")

	default:
		pretty, _ := json.MarshalIndent(f, "", "  ")
		fmt.Printf("[FRAME]\n%s\n\n", string(pretty))
	}
}
