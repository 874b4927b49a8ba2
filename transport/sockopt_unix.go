//go:build !windows

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlFunc returns a net.ListenConfig.Control callback that applies
// SO_REUSEADDR unconditionally and SO_REUSEPORT when reusePort is set,
// allowing this process to coexist with another mDNS responder (e.g. the
// host OS's own) already bound to port 5353.
func controlFunc(reusePort bool) func(string, string, syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			if sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); sockErr != nil {
				return
			}
			if reusePort {
				// Older kernels without SO_REUSEPORT support are tolerated;
				// the socket still works, it just can't share the port.
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil && err != unix.ENOPROTOOPT {
					sockErr = err
				}
			}
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}
