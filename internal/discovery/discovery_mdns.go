package discovery

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/grandcat/zeroconf"
	"github.com/miekg/dns"

	"scanbridge/internal/logger"
	"scanbridge/internal/probe"
)

// browseFunc streams DNS-SD entries for one service type until ctx ends and
// then closes entries.
type browseFunc func(ctx context.Context, service string, entries chan *zeroconf.ServiceEntry) error

// MDNSProber asks the multicast DNS group for printing and scanning services.
// Any responder that answers counts as a hit; the answer alone does not prove
// the host can scan.
type MDNSProber struct {
	cfg    MDNSConfig
	send   sendFunc
	browse browseFunc
	log    *log.Logger
}

// NewMDNSProber creates a prober using the real UDP transport and zeroconf.
func NewMDNSProber(cfg MDNSConfig) *MDNSProber {
	return &MDNSProber{cfg: cfg, send: probe.SendAndCollect, browse: zeroconfBrowse, log: logger.Named("mdns")}
}

func (p *MDNSProber) Name() string { return "mdns" }

// Probe queries each service and, when browsing is enabled, names hits from
// eSCL DNS-SD advertisements.
func (p *MDNSProber) Probe(ctx context.Context) ([]Device, error) {
	var (
		devices []Device
		lastErr error
		sent    int
	)
	index := make(map[string]int)

	for _, service := range p.cfg.Services {
		if ctx.Err() != nil {
			break
		}
		query, err := buildMDNSQuery(service)
		if err != nil {
			p.log.Debug("build query failed", "service", service, "err", err)
			lastErr = err
			continue
		}
		responses, err := p.send(ctx, query, p.cfg.Group, p.cfg.Port, p.cfg.Window, p.cfg.BufferSize)
		if err != nil {
			p.log.Debug("query failed", "service", service, "err", err)
			lastErr = err
			continue
		}
		sent++
		for _, resp := range responses {
			ip := resp.IP()
			if ip == "" || !isMDNSAnswer(resp.Data) {
				continue
			}
			if _, dup := index[ip]; dup {
				continue
			}
			dev := newMDNSDevice(ip)
			dev.Instance = mdnsInstance(resp.Data)
			index[ip] = len(devices)
			devices = append(devices, dev)
		}
	}

	if sent == 0 && lastErr != nil {
		return nil, lastErr
	}

	if p.cfg.Browse && p.browse != nil && ctx.Err() == nil {
		for _, entry := range p.browseScanners(ctx) {
			for _, addr := range entry.AddrIPv4 {
				ip := addr.String()
				if pos, ok := index[ip]; ok {
					if devices[pos].Instance == "" {
						devices[pos].Instance = entry.Instance
					}
					continue
				}
				dev := newMDNSDevice(ip)
				dev.Instance = entry.Instance
				index[ip] = len(devices)
				devices = append(devices, dev)
			}
		}
	}
	return devices, nil
}

func newMDNSDevice(ip string) Device {
	return Device{
		Identity:  "MDNS:" + ip,
		Name:      fmt.Sprintf("mDNS Scanner (%s)", ip),
		Origin:    OriginMDNS,
		IsNetwork: true,
		Address:   ip,
	}
}

// browseScanners collects DNS-SD entries for the configured scan services.
// Each service gets its own channel because zeroconf closes it when done.
func (p *MDNSProber) browseScanners(ctx context.Context) []*zeroconf.ServiceEntry {
	window := p.cfg.BrowseWindow
	if window <= 0 {
		window = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	var (
		mu      sync.Mutex
		entries []*zeroconf.ServiceEntry
		wg      sync.WaitGroup
	)
	for _, service := range p.cfg.BrowseServices {
		ch := make(chan *zeroconf.ServiceEntry, 16)
		if err := p.browse(ctx, service, ch); err != nil {
			p.log.Debug("browse failed", "service", service, "err", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range ch {
				if entry == nil {
					continue
				}
				mu.Lock()
				entries = append(entries, entry)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return entries
}

func zeroconfBrowse(ctx context.Context, service string, entries chan *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return err
	}
	return resolver.Browse(ctx, service, "local.", entries)
}

// buildMDNSQuery encodes a single PTR question with the unicast-response bit
// set, so responders reply straight to our ephemeral port.
func buildMDNSQuery(service string) ([]byte, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(strings.TrimSpace(service)), dns.TypePTR)
	msg.Id = 0
	msg.RecursionDesired = false
	msg.Question[0].Qclass |= 1 << 15
	return msg.Pack()
}

// isMDNSAnswer reports whether data is a DNS response carrying at least one
// answer record. Only the header is inspected.
func isMDNSAnswer(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	isResponse := data[2]&0x80 != 0
	answers := binary.BigEndian.Uint16(data[6:8])
	return isResponse && answers > 0
}

// mdnsInstance returns the instance label of the first PTR answer in data.
func mdnsInstance(data []byte) string {
	msg := new(dns.Msg)
	if err := msg.Unpack(data); err != nil {
		return ""
	}
	for _, rr := range msg.Answer {
		ptr, ok := rr.(*dns.PTR)
		if !ok {
			continue
		}
		name := strings.TrimSuffix(ptr.Ptr, ".")
		if i := strings.Index(name, "._"); i > 0 {
			name = name[:i]
		}
		return strings.ReplaceAll(name, `\ `, " ")
	}
	return ""
}
