package probe

import (
	"context"
	"net"
	"testing"
	"time"
)

func startResponder(t *testing.T, replies ...string) int {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 512)
		for {
			_, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			for _, reply := range replies {
				_, _ = conn.WriteTo([]byte(reply), from)
			}
		}
	}()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func TestSendAndCollectGathersAllReplies(t *testing.T) {
	port := startResponder(t, "first", "second")

	responses, err := SendAndCollect(context.Background(), []byte("hello"), "127.0.0.1", port, 300*time.Millisecond, 512)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if string(responses[0].Data) != "first" || string(responses[1].Data) != "second" {
		t.Fatalf("unexpected payloads: %q %q", responses[0].Data, responses[1].Data)
	}
	if responses[0].IP() != "127.0.0.1" {
		t.Fatalf("expected sender 127.0.0.1, got %s", responses[0].IP())
	}
}

func TestSendAndCollectTimeoutIsNotAnError(t *testing.T) {
	port := startResponder(t)

	responses, err := SendAndCollect(context.Background(), []byte("hello"), "127.0.0.1", port, 100*time.Millisecond, 512)
	if err != nil {
		t.Fatalf("timeout should not be an error: %v", err)
	}
	if len(responses) != 0 {
		t.Fatalf("expected no responses, got %d", len(responses))
	}
}

func TestSendAndCollectTruncatesToBuffer(t *testing.T) {
	port := startResponder(t, "0123456789")

	responses, err := SendAndCollect(context.Background(), []byte("x"), "127.0.0.1", port, 200*time.Millisecond, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(responses) != 1 || len(responses[0].Data) != 4 {
		t.Fatalf("expected one 4-byte response, got %+v", responses)
	}
}

func TestSendAndCollectStopsOnCancel(t *testing.T) {
	port := startResponder(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	if _, err := SendAndCollect(ctx, []byte("x"), "127.0.0.1", port, 5*time.Second, 512); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancellation did not unblock the read, took %v", elapsed)
	}
}

func TestDialCheck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	if err := DialCheck(context.Background(), "127.0.0.1", port, time.Second); err != nil {
		t.Fatalf("expected successful dial: %v", err)
	}
	ln.Close()
	if err := DialCheck(context.Background(), "127.0.0.1", port, time.Second); err == nil {
		t.Fatal("expected dial to closed port to fail")
	}
}
