package discovery

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"scanbridge/internal/logger"
	"scanbridge/internal/probe"
)

const maxESCLBodySize = 256 << 10

var esclSignatures = []string{"scannercapabilities", "escl", "<?xml"}

// ESCLProber walks every host of each local /24 and looks for an HTTP
// endpoint that answers like an eSCL scanner. eSCL devices do not announce
// themselves, so this is the only prober that proves capability.
type ESCLProber struct {
	cfg        ESCLConfig
	client     *http.Client
	dial       func(ctx context.Context, host string, port int, timeout time.Duration) error
	interfaces func() []string
	log        *log.Logger
}

// NewESCLProber creates a prober using real sockets.
func NewESCLProber(cfg ESCLConfig) *ESCLProber {
	transport := &http.Transport{
		DialContext:       (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
		DisableKeepAlives: true,
	}
	return &ESCLProber{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.RequestTimeout, Transport: transport},
		dial:       probe.DialCheck,
		interfaces: LocalPrefixes,
		log:        logger.Named("escl"),
	}
}

func (p *ESCLProber) Name() string { return "escl" }

// Budget is the wall-clock cap the orchestrator applies to this prober.
func (p *ESCLProber) Budget() time.Duration { return p.cfg.Budget }

// Prefixes returns the /24 prefixes that will be walked, in the form "a.b.c.".
func (p *ESCLProber) Prefixes() []string {
	if len(p.cfg.Prefixes) > 0 {
		return normalisePrefixes(p.cfg.Prefixes)
	}
	if p.interfaces != nil {
		if found := p.interfaces(); len(found) > 0 {
			return found
		}
	}
	return normalisePrefixes(p.cfg.FallbackPrefixes)
}

// Probe runs one worker per prefix. Every socket call is bound to ctx, so
// workers stop when the caller's budget ends; hits recorded after that are
// dropped.
func (p *ESCLProber) Probe(ctx context.Context) ([]Device, error) {
	prefixes := p.Prefixes()
	if len(prefixes) == 0 {
		return nil, nil
	}

	var limiter *rate.Limiter
	if p.cfg.RateLimit > 0 {
		burst := p.cfg.HostConcurrency
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(p.cfg.RateLimit), burst)
	}

	var (
		mu      sync.Mutex
		devices []Device
		wg      sync.WaitGroup
	)
	for _, prefix := range prefixes {
		wg.Add(1)
		go func(prefix string) {
			defer wg.Done()
			found := p.scanPrefix(ctx, prefix, limiter)
			if len(found) == 0 {
				return
			}
			mu.Lock()
			devices = append(devices, found...)
			mu.Unlock()
		}(prefix)
	}
	wg.Wait()

	if ctx.Err() != nil {
		p.log.Debug("budget reached", "found", len(devices))
	}
	return devices, nil
}

func (p *ESCLProber) scanPrefix(ctx context.Context, prefix string, limiter *rate.Limiter) []Device {
	first, last := p.cfg.HostFirst, p.cfg.HostLast
	if first < 1 {
		first = 1
	}
	if last < first {
		return nil
	}
	concurrency := p.cfg.HostConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	hits := make([]*Device, last-first+1)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

Hosts:
	for suffix := first; suffix <= last; suffix++ {
		select {
		case <-ctx.Done():
			break Hosts
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(slot int, ip string) {
			defer wg.Done()
			defer func() { <-sem }()
			dev, ok := p.probeHost(ctx, ip, limiter)
			if !ok || ctx.Err() != nil {
				return
			}
			hits[slot] = &dev
		}(suffix-first, prefix+strconv.Itoa(suffix))
	}
	wg.Wait()

	var out []Device
	for _, hit := range hits {
		if hit != nil {
			out = append(out, *hit)
		}
	}
	return out
}

// probeHost tries each port in order and stops at the first that answers.
func (p *ESCLProber) probeHost(ctx context.Context, ip string, limiter *rate.Limiter) (Device, bool) {
	for idx, port := range p.cfg.Ports {
		if idx > 0 && !sleepContext(ctx, p.cfg.AttemptDelay) {
			return Device{}, false
		}
		if !p.testWithRetry(ctx, ip, port, limiter) {
			if ctx.Err() != nil {
				return Device{}, false
			}
			continue
		}
		addr := net.JoinHostPort(ip, strconv.Itoa(port))
		p.log.Debug("escl endpoint found", "addr", addr)
		return Device{
			Identity:  "ESCL:" + addr,
			Name:      p.describe(ctx, ip, port),
			Origin:    OriginESCL,
			IsNetwork: true,
			Address:   addr,
		}, true
	}
	return Device{}, false
}

func (p *ESCLProber) testWithRetry(ctx context.Context, ip string, port int, limiter *rate.Limiter) bool {
	attempts := p.cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return false
			}
		}
		if p.testEndpoint(ctx, ip, port) {
			return true
		}
		if attempt < attempts-1 && !sleepContext(ctx, time.Duration(attempt+1)*100*time.Millisecond) {
			return false
		}
	}
	return false
}

// testEndpoint requires a TCP connect within the connect timeout and then at
// least one known endpoint returning a 2xx body with a scanner signature.
func (p *ESCLProber) testEndpoint(ctx context.Context, ip string, port int) bool {
	if err := p.dial(ctx, ip, port, p.cfg.ConnectTimeout); err != nil {
		return false
	}
	for _, endpoint := range p.cfg.Endpoints {
		if ctx.Err() != nil {
			return false
		}
		status, contentType, body, err := p.fetch(ctx, ip, port, endpoint)
		if err != nil {
			continue
		}
		if hasESCLSignature(status, contentType, body) {
			return true
		}
	}
	return false
}

func (p *ESCLProber) fetch(ctx context.Context, ip string, port int, endpoint string) (int, string, []byte, error) {
	url := fmt.Sprintf("%s://%s%s", schemeForPort(port), net.JoinHostPort(ip, strconv.Itoa(port)), endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxESCLBodySize))
	if err != nil {
		return resp.StatusCode, "", nil, err
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), body, nil
}

// describe fetches device information XML and builds a display name.
func (p *ESCLProber) describe(ctx context.Context, ip string, port int) string {
	var manufacturer, model string
	for _, endpoint := range p.cfg.InfoEndpoints {
		if manufacturer != "" || model != "" {
			break
		}
		if ctx.Err() != nil {
			break
		}
		status, _, body, err := p.fetch(ctx, ip, port, endpoint)
		if err != nil || status < 200 || status >= 300 {
			continue
		}
		mfr, mdl := extractDeviceInfo(body)
		if manufacturer == "" {
			manufacturer = mfr
		}
		if model == "" {
			model = mdl
		}
	}
	return composeESCLName(manufacturer, model, net.JoinHostPort(ip, strconv.Itoa(port)))
}

func hasESCLSignature(status int, contentType string, body []byte) bool {
	if status < 200 || status >= 300 {
		return false
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "application/xml") || strings.Contains(ct, "text/xml") {
		return true
	}
	lower := strings.ToLower(string(body))
	if containsAny(lower, esclSignatures) {
		return true
	}
	return strings.Contains(lower, "printer")
}

func schemeForPort(port int) string {
	if port == 443 || port == 8443 {
		return "https"
	}
	return "http"
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
