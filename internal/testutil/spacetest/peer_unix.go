//go:build unix

package spacetest

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// peerReset polls the socket error for up to wait. A client that closed
// before reading answers the written response with a reset.
func peerReset(conn net.Conn, wait time.Duration) bool {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return false
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return false
	}
	deadline := time.Now().Add(wait)
	for {
		var soErr int
		if err := raw.Control(func(fd uintptr) {
			soErr, _ = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
		}); err != nil {
			return false
		}
		if soErr != 0 {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
