package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch outcomes used as the "outcome" label.
const (
	outcomeHandled   = "handled"
	outcomeUnhandled = "unhandled"
	outcomeFailed    = "failed"
)

// unregisteredEventLabel keeps unknown event names out of label values.
const unregisteredEventLabel = "other"

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mpvshim_events_total",
		Help: "Total number of remote events dispatched, by event and outcome.",
	}, []string{"event", "outcome"})

	handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mpvshim_handler_duration_seconds",
		Help:    "Time spent in event handlers, by event.",
		Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
	}, []string{"event"})

	keyTapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mpvshim_key_taps_total",
		Help: "Total number of emulated key taps, by key.",
	}, []string{"key"})

	ipcConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mpvshim_ipc_connections_total",
		Help: "Total number of control socket connections, by result.",
	}, []string{"result"})

	timelineClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mpvshim_timeline_clients",
		Help: "Current number of connected timeline websocket clients.",
	})
)
