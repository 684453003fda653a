package scanerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Fatalf("expected empty code for nil, got %s", got)
	}
	wrapped := fmt.Errorf("scan: %w", New(NoPaper, "tray empty"))
	if got := CodeOf(wrapped); got != NoPaper {
		t.Fatalf("expected NO_PAPER, got %s", got)
	}
	if got := CodeOf(errors.New("boom")); got != UnknownScannerError {
		t.Fatalf("expected UNKNOWN_SCANNER_ERROR, got %s", got)
	}
	if got := CodeOf(New(Code("MADE_UP"), "")); got != UnknownScannerError {
		t.Fatalf("unregistered code leaked: %s", got)
	}
}

func TestErrorString(t *testing.T) {
	if got := New(ScanFailed, "").Error(); got != "SCAN_FAILED" {
		t.Fatalf("unexpected message %q", got)
	}
	err := Wrap(ScannerOffline, errors.New("device gone"))
	if got := err.Error(); got != "SCANNER_OFFLINE: device gone" {
		t.Fatalf("unexpected message %q", got)
	}
	if errors.Unwrap(err) == nil {
		t.Fatal("expected wrapped cause")
	}
}

func TestHTTPStatusCode(t *testing.T) {
	cases := map[int]Code{400: ESCLBadRequest, 401: ESCLUnauthorized, 403: ESCLForbidden, 404: ESCLNotFound, 409: ESCLConflict, 500: ESCLInternalServerError, 503: ESCLServiceUnavailable}
	for status, want := range cases {
		got, ok := HTTPStatusCode(status)
		if !ok || got != want {
			t.Fatalf("status %d: expected %s, got %s", status, want, got)
		}
	}
	if _, ok := HTTPStatusCode(200); ok {
		t.Fatal("200 should not map to an error code")
	}
}

func TestClassifyNetworkError(t *testing.T) {
	opErr := func(errno syscall.Errno) error {
		return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", errno)}
	}
	cases := []struct {
		err  error
		want Code
	}{
		{opErr(errConnRefused), ScannerConnectionRefused},
		{opErr(errHostUnreach), ScannerHostUnreachable},
		{opErr(errHostDown), ScannerHostDown},
		{opErr(errNetUnreach), NetworkUnreachable},
		{opErr(errNetDown), NetworkDown},
		{opErr(errConnReset), ScannerConnectionReset},
		{opErr(errConnAborted), ScannerConnectionAborted},
		{opErr(errAddrNotAvail), ScannerAddressNotAvailable},
		{opErr(errTimedOut), ScannerTimeout},
		{context.DeadlineExceeded, ScannerTimeout},
		{&net.AddrError{Err: "missing port", Addr: "x"}, InvalidScannerAddress},
		{errors.New("other"), ScannerConnectionFailed},
	}
	for _, tc := range cases {
		if got := ClassifyNetworkError(tc.err); got != tc.want {
			t.Errorf("%v: expected %s, got %s", tc.err, tc.want, got)
		}
	}
}

func TestIsConnectionRefused(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connectex", errConnRefused)}
	if !IsConnectionRefused(fmt.Errorf("pre-check: %w", refused)) {
		t.Fatal("wrapped refusal not recognised")
	}
	unreach := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connectex", errHostUnreach)}
	if IsConnectionRefused(unreach) || IsConnectionRefused(nil) {
		t.Fatal("only refusals count")
	}
}

func TestCodesAreKnown(t *testing.T) {
	for _, code := range Codes() {
		if !code.Known() {
			t.Fatalf("%s should be known", code)
		}
	}
	if Code("MADE_UP").Known() {
		t.Fatal("unexpected known code")
	}
}
