package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

// DialCheck reports whether a TCP connection to host:port completes within
// timeout. The connection is closed immediately.
func DialCheck(ctx context.Context, host string, port int, timeout time.Duration) error {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return conn.Close()
}
