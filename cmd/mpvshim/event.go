package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ticksPerSecond is the remote protocol's time unit (100ns ticks).
const ticksPerSecond = 10_000_000

// ticksToSeconds converts a remote tick count to seconds.
func ticksToSeconds(ticks float64) float64 {
	return ticks / ticksPerSecond
}

func secondsToTicks(s float64) int64 {
	return int64(math.Round(s * ticksPerSecond))
}

// Source identifies the remote session that sent an event.
type Source struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (s Source) String() string {
	switch {
	case s.Name != "" && s.ID != "":
		return s.Name + "/" + s.ID
	case s.Name != "":
		return s.Name
	default:
		return s.ID
	}
}

// Event is one named remote instruction and its arguments.
type Event struct {
	Name string
	Args Args
}

// ============================================================================
// Wire format
// ============================================================================
// Control socket clients send one JSON object per line:
//
//	{"name": "GeneralCommand", "source": {"id": "..."}, "arguments": {"Name": "MoveUp"}}
// ============================================================================

// EventEnvelope is the JSON representation of an inbound event.
type EventEnvelope struct {
	Name      string `json:"name"`
	Source    Source `json:"source"`
	Arguments Args   `json:"arguments,omitempty"`
}

// UnmarshalEvent decodes an envelope and checks that it names an event.
func UnmarshalEvent(data []byte) (Source, Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Source{}, Event{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Name == "" {
		return Source{}, Event{}, errors.New("unmarshal envelope: event name is empty")
	}
	return env.Source, Event{Name: env.Name, Args: env.Arguments}, nil
}

// MarshalEvent encodes an event for the control socket.
func MarshalEvent(src Source, ev Event) ([]byte, error) {
	if ev.Name == "" {
		return nil, errors.New("marshal event: event name is empty")
	}
	return json.Marshal(EventEnvelope{Name: ev.Name, Source: src, Arguments: ev.Args})
}
