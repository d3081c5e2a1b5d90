package main

import "time"

// Defaults shared by config and flags.
const (
	defaultMPVTimeoutMS       = 1000
	defaultIPCReplyTimeoutMS  = 5000
	defaultIPCQueueSize       = 64
	defaultHTTPListen         = "127.0.0.1:3002"
	defaultTimelineIntervalMS = 1000
	defaultIdleCmdDelaySec    = 60
	defaultNotifyTimeoutMS    = 5000
	defaultMenuOSDDuration    = 5 * time.Second

	defaultIPCReplyTimeout = defaultIPCReplyTimeoutMS * time.Millisecond

	defaultAppName = "mpvshim"
)

// Backend names for keyboard and notification adapters.
const (
	keyboardBackendXdotool = "xdotool"
	keyboardBackendLog     = "log"

	notifyBackendNotifySend = "notify-send"
	notifyBackendLog        = "log"
)
