package server

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneSocket applies SO_RCVBUF and TCP_NODELAY to an accepted connection.
// Producers push large sequential batches, so a generous receive buffer and
// disabled Nagle coalescing both reduce round-trip stalls.
func tuneSocket(conn *net.TCPConn, recvBufBytes int) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, recvBufBytes); sockErr != nil {
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
