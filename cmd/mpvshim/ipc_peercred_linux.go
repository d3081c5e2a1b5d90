//go:build linux

package main

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// peerCredentials reads SO_PEERCRED from a unix socket connection.
func peerCredentials(conn net.Conn) (peerCred, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return peerCred{}, errors.New("not a unix socket connection")
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return peerCred{}, fmt.Errorf("syscall conn: %w", err)
	}

	var (
		ucred   *unix.Ucred
		sockErr error
	)
	if err := raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return peerCred{}, fmt.Errorf("control: %w", err)
	}
	if sockErr != nil {
		return peerCred{}, fmt.Errorf("getsockopt SO_PEERCRED: %w", sockErr)
	}
	return peerCred{PID: ucred.Pid, UID: ucred.Uid, GID: ucred.Gid}, nil
}
