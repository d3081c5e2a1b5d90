//go:build !linux

package main

import (
	"errors"
	"net"
)

func peerCredentials(net.Conn) (peerCred, error) {
	return peerCred{}, errors.New("peer credentials not supported on this platform")
}
