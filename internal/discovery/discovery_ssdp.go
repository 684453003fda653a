package discovery

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"scanbridge/internal/logger"
	"scanbridge/internal/probe"
)

var (
	ssdpKeywords        = []string{"printer", "scanner", "multifunction"}
	ssdpLocationPattern = regexp.MustCompile(`(?im)^location:\s*(\S+)`)
)

// SSDPProber issues M-SEARCH queries for printing and scanning devices.
type SSDPProber struct {
	cfg  SSDPConfig
	send sendFunc
	log  *log.Logger
}

// NewSSDPProber creates a prober using the real UDP transport.
func NewSSDPProber(cfg SSDPConfig) *SSDPProber {
	return &SSDPProber{cfg: cfg, send: probe.SendAndCollect, log: logger.Named("ssdp")}
}

func (p *SSDPProber) Name() string { return "ssdp" }

// Probe sends one M-SEARCH per search target and keeps responders that carry
// a LOCATION header and mention a printing or scanning device.
func (p *SSDPProber) Probe(ctx context.Context) ([]Device, error) {
	var (
		devices []Device
		lastErr error
		sent    int
	)
	seen := make(map[string]struct{})

	for _, st := range p.cfg.SearchTargets {
		if ctx.Err() != nil {
			break
		}
		payload := buildSSDPSearch(st, p.cfg.Group, p.cfg.Port)
		responses, err := p.send(ctx, payload, p.cfg.Group, p.cfg.Port, p.cfg.Window, p.cfg.BufferSize)
		if err != nil {
			p.log.Debug("m-search failed", "st", st, "err", err)
			lastErr = err
			continue
		}
		sent++
		for _, resp := range responses {
			dev, ok := parseSSDPResponse(resp.Data, resp.IP())
			if !ok {
				continue
			}
			if _, dup := seen[dev.Identity]; dup {
				continue
			}
			seen[dev.Identity] = struct{}{}
			devices = append(devices, dev)
		}
	}

	if sent == 0 && lastErr != nil {
		return nil, lastErr
	}
	return devices, nil
}

func buildSSDPSearch(st, group string, port int) []byte {
	return []byte("M-SEARCH * HTTP/1.1\r\n" +
		fmt.Sprintf("HOST: %s:%d\r\n", group, port) +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 2\r\n" +
		"ST: " + st + "\r\n" +
		"\r\n")
}

// parseSSDPResponse accepts a reply only when it has a LOCATION header and a
// device keyword. The display name uses the LOCATION host, falling back to
// the sender address.
func parseSSDPResponse(data []byte, senderIP string) (Device, bool) {
	if senderIP == "" {
		return Device{}, false
	}
	lower := strings.ToLower(string(data))
	if !strings.Contains(lower, "location:") || !containsAny(lower, ssdpKeywords) {
		return Device{}, false
	}

	host := senderIP
	if m := ssdpLocationPattern.FindSubmatch(data); m != nil {
		if u, err := url.Parse(strings.TrimSpace(string(m[1]))); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}

	return Device{
		Identity:  "SSDP:" + senderIP,
		Name:      fmt.Sprintf("SSDP Scanner (%s)", host),
		Origin:    OriginSSDP,
		IsNetwork: true,
		Address:   senderIP,
	}, true
}
