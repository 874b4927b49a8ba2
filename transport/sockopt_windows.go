//go:build windows

package transport

import "syscall"

// controlFunc is a no-op on Windows; SO_REUSEPORT has no portable
// equivalent and SO_REUSEADDR's Windows semantics differ enough from POSIX
// that we leave the default net.ListenConfig behaviour untouched.
func controlFunc(reusePort bool) func(string, string, syscall.RawConn) error {
	return nil
}
