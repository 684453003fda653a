package session

import (
	"context"
	"errors"
	"runtime"
	"time"

	ping "github.com/go-ping/ping"
)

var errNoEchoReply = errors.New("no echo reply")

// pingHost sends one ICMP echo and waits for the reply or the timeout.
func pingHost(ctx context.Context, host string, timeout time.Duration) error {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return err
	}
	pinger.SetPrivileged(runtime.GOOS == "windows")
	pinger.Count = 1
	pinger.Timeout = timeout

	statsCh := make(chan *ping.Statistics, 1)
	pinger.OnFinish = func(stats *ping.Statistics) {
		statsCh <- stats
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- pinger.Run()
	}()

	var stats *ping.Statistics
	for stats == nil {
		select {
		case <-ctx.Done():
			pinger.Stop()
			return ctx.Err()
		case err := <-errCh:
			if err != nil {
				return err
			}
			// Run returned cleanly; OnFinish has already queued the stats.
			select {
			case stats = <-statsCh:
			default:
				return errNoEchoReply
			}
		case stats = <-statsCh:
		}
	}

	if stats.PacketsRecv == 0 {
		return errNoEchoReply
	}
	return nil
}
