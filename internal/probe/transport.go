package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Response is a single datagram received while collecting replies.
type Response struct {
	Addr *net.UDPAddr
	Data []byte
}

// IP returns the textual source address of the response.
func (r Response) IP() string {
	if r.Addr == nil {
		return ""
	}
	return r.Addr.IP.String()
}

// SendAndCollect sends payload once to dest:port from a fresh UDP socket and
// gathers every reply until listen elapses, the context ends or the socket
// fails. An empty result is a normal outcome. The only errors returned are
// failures to open the socket or to send the payload.
func SendAndCollect(ctx context.Context, payload []byte, dest string, port int, listen time.Duration, bufSize int) ([]Response, error) {
	if bufSize <= 0 {
		bufSize = 1500
	}

	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(dest, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dest, err)
	}

	lc := net.ListenConfig{Control: enableBroadcast}
	conn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("open udp socket: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(listen)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	// Unblock ReadFrom as soon as the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.WriteTo(payload, addr); err != nil {
		return nil, fmt.Errorf("send to %s: %w", addr, err)
	}

	var responses []Response
	buf := make([]byte, bufSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return responses, nil
		}
		udpAddr, ok := from.(*net.UDPAddr)
		if !ok || n == 0 {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		responses = append(responses, Response{Addr: udpAddr, Data: data})
	}
}
