package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"scanbridge/internal/discovery"
	"scanbridge/internal/probe"
	"scanbridge/internal/scanerr"
)

// PrecheckFunc verifies a network device is reachable before it is opened.
type PrecheckFunc func(ctx context.Context, dev discovery.Device) error

// reachability checks a network device the way the driver will reach it. A
// device found on a specific port must accept on that port; otherwise an
// ICMP echo or any TCP answer on a well-known port is enough, and a refused
// connection still proves the host is up.
func (r *Runner) reachability(ctx context.Context, dev discovery.Device) error {
	host := dev.Host()
	if host == "" {
		return scanerr.New(scanerr.NetworkScannerUnreachable, string(scanerr.InvalidScannerAddress))
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.PrecheckTimeout*2)
	defer cancel()

	if port := dev.Port(); port > 0 {
		if err := probe.DialCheck(ctx, host, port, r.cfg.PrecheckTimeout); err != nil {
			return unreachable(err)
		}
		if dev.Origin == discovery.OriginESCL {
			return r.esclStatus(ctx, host, port)
		}
		return nil
	}

	if r.cfg.Ping {
		err := pingHost(ctx, host, r.cfg.PrecheckTimeout)
		if err == nil {
			return nil
		}
		r.log.Debug("ping failed, trying tcp", "host", host, "err", err)
	}

	lastErr := errors.New("no pre-check ports configured")
	for _, port := range r.cfg.PrecheckPorts {
		err := probe.DialCheck(ctx, host, port, r.cfg.PrecheckTimeout)
		if err == nil || isRefused(err) {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return unreachable(lastErr)
}

// esclStatus asks an eSCL device for its scanner status. A port that accepts
// but answers with an HTTP error cannot take a job. A request that fails
// outright is left for the driver to report.
func (r *Runner) esclStatus(ctx context.Context, host string, port int) error {
	scheme := "http"
	if port == 443 || port == 8443 {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/eSCL/ScannerStatus", scheme, net.JoinHostPort(host, strconv.Itoa(port)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return scanerr.New(scanerr.NetworkScannerUnreachable, string(scanerr.InvalidScannerAddress))
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Debug("escl status request failed", "host", host, "port", port, "err", err)
		return nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if code, ok := scanerr.HTTPStatusCode(resp.StatusCode); ok {
		return &scanerr.Error{
			Code:   scanerr.NetworkScannerUnreachable,
			Detail: fmt.Sprintf("%s: %s", code, resp.Status),
		}
	}
	return nil
}

// isRefused reports an active refusal, which still proves the host is up.
func isRefused(err error) bool {
	return scanerr.IsConnectionRefused(err)
}

func unreachable(err error) *scanerr.Error {
	native := scanerr.ClassifyNetworkError(err)
	return &scanerr.Error{
		Code:   scanerr.NetworkScannerUnreachable,
		Detail: fmt.Sprintf("%s: %v", native, err),
		Err:    err,
	}
}
