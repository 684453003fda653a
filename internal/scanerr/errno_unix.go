//go:build !windows

package scanerr

import "syscall"

var (
	errNetDown      = syscall.ENETDOWN
	errNetUnreach   = syscall.ENETUNREACH
	errConnRefused  = syscall.ECONNREFUSED
	errHostUnreach  = syscall.EHOSTUNREACH
	errHostDown     = syscall.EHOSTDOWN
	errConnReset    = syscall.ECONNRESET
	errConnAborted  = syscall.ECONNABORTED
	errAddrNotAvail = syscall.EADDRNOTAVAIL
	errTimedOut     = syscall.ETIMEDOUT
)
