//go:build windows

package scanerr

import "golang.org/x/sys/windows"

// Winsock reports socket failures with its own WSAE numbers, which never
// match the POSIX values in package syscall.
var (
	errNetDown      = windows.WSAENETDOWN
	errNetUnreach   = windows.WSAENETUNREACH
	errConnRefused  = windows.WSAECONNREFUSED
	errHostUnreach  = windows.WSAEHOSTUNREACH
	errHostDown     = windows.WSAEHOSTDOWN
	errConnReset    = windows.WSAECONNRESET
	errConnAborted  = windows.WSAECONNABORTED
	errAddrNotAvail = windows.WSAEADDRNOTAVAIL
	errTimedOut     = windows.WSAETIMEDOUT
)
