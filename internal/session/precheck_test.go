package session

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"scanbridge/internal/discovery"
	"scanbridge/internal/scanerr"
)

func esclDevice(t *testing.T, srv *httptest.Server) discovery.Device {
	t.Helper()
	addr := strings.TrimPrefix(srv.URL, "http://")
	return discovery.Device{Identity: "ESCL:" + addr, Name: "Hall eSCL", Origin: discovery.OriginESCL, IsNetwork: true, Address: addr}
}

func TestReachabilityRejectsESCLErrorStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/eSCL/ScannerStatus" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := newTestRunner(t, &fakeService{})
	err := r.reachability(context.Background(), esclDevice(t, srv))
	expectCode(t, err, scanerr.NetworkScannerUnreachable)
	if !strings.Contains(err.Error(), string(scanerr.ESCLServiceUnavailable)) {
		t.Fatalf("expected eSCL code in detail, got %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected one status request, got %d", n)
	}
}

func TestReachabilityAcceptsIdleESCLScanner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<scan:ScannerStatus><pwg:State>Idle</pwg:State></scan:ScannerStatus>`))
	}))
	defer srv.Close()

	r := newTestRunner(t, &fakeService{})
	if err := r.reachability(context.Background(), esclDevice(t, srv)); err != nil {
		t.Fatalf("expected reachable, got %v", err)
	}
}

func TestESCLErrorStatusStopsSessionBeforeOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	svc := &fakeService{device: &fakeDevice{}}
	r := newTestRunner(t, svc)
	dev := esclDevice(t, srv)
	snap := discovery.Snapshot{ID: "hall", Devices: []discovery.Device{dev}}

	_, err := r.Run(context.Background(), snap, Request{Name: dev.Name})
	expectCode(t, err, scanerr.NetworkScannerUnreachable)
	if !strings.Contains(err.Error(), string(scanerr.ESCLConflict)) {
		t.Fatalf("expected eSCL conflict in detail, got %v", err)
	}
	if len(svc.opened) != 0 {
		t.Fatal("device opened after failed status check")
	}
}

func TestRefusedPortProvesHostIsUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	r := newTestRunner(t, &fakeService{})
	r.cfg.Ping = false
	r.cfg.PrecheckPorts = []int{port}
	dev := discovery.Device{Identity: "WSD:127.0.0.1", Name: "closed", IsNetwork: true, Address: "127.0.0.1"}
	if err := r.reachability(context.Background(), dev); err != nil {
		t.Fatalf("refused connection should count as reachable, got %v", err)
	}

	wrapped := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", errors.New("no route to host"))}
	if isRefused(wrapped) {
		t.Fatal("only refusals count")
	}
}
