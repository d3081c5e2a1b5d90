package main

// peerCred identifies the process on the other end of the control socket.
type peerCred struct {
	PID int32
	UID uint32
	GID uint32
}
