package scanerr

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Error is the typed failure returned by a scan session.
type Error struct {
	Code   Code
	Detail string
	Err    error
}

// New builds an Error with an optional diagnostic detail.
func New(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// Wrap builds an Error around a native failure, keeping its text as detail.
func Wrap(code Code, err error) *Error {
	e := &Error{Code: code, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the canonical code from err. Errors that never passed
// through this package map to UNKNOWN_SCANNER_ERROR.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) && se.Code.Known() {
		return se.Code
	}
	return UnknownScannerError
}

// HTTPStatusCode maps an eSCL HTTP status to its code.
func HTTPStatusCode(status int) (Code, bool) {
	switch status {
	case http.StatusBadRequest:
		return ESCLBadRequest, true
	case http.StatusUnauthorized:
		return ESCLUnauthorized, true
	case http.StatusForbidden:
		return ESCLForbidden, true
	case http.StatusNotFound:
		return ESCLNotFound, true
	case http.StatusConflict:
		return ESCLConflict, true
	case http.StatusInternalServerError:
		return ESCLInternalServerError, true
	case http.StatusServiceUnavailable:
		return ESCLServiceUnavailable, true
	default:
		return "", false
	}
}

// IsConnectionRefused reports whether err is an active refusal by the peer,
// which proves the host is up.
func IsConnectionRefused(err error) bool {
	return errors.Is(err, errConnRefused)
}

// ClassifyNetworkError maps a dial or socket failure to a native network code.
func ClassifyNetworkError(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errNetDown):
		return NetworkDown
	case errors.Is(err, errNetUnreach):
		return NetworkUnreachable
	case errors.Is(err, errConnRefused):
		return ScannerConnectionRefused
	case errors.Is(err, errHostUnreach):
		return ScannerHostUnreachable
	case errors.Is(err, errHostDown):
		return ScannerHostDown
	case errors.Is(err, errConnReset):
		return ScannerConnectionReset
	case errors.Is(err, errConnAborted):
		return ScannerConnectionAborted
	case errors.Is(err, errAddrNotAvail):
		return ScannerAddressNotAvailable
	case errors.Is(err, errTimedOut), errors.Is(err, context.DeadlineExceeded):
		return ScannerTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ScannerTimeout
	}
	var addrErr *net.AddrError
	var dnsErr *net.DNSError
	var parseErr *net.ParseError
	if errors.As(err, &addrErr) || errors.As(err, &dnsErr) || errors.As(err, &parseErr) {
		return InvalidScannerAddress
	}
	return ScannerConnectionFailed
}
