package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"scanbridge/internal/logger"
	"scanbridge/internal/probe"
)

var (
	wsdSearchTargets = []string{
		"urn:schemas-xmlsoap-org:ws:2005:04:discovery",
		"urn:schemas-upnp-org:device:Printer:1",
		"urn:hp-com:device:Printer:1",
		"urn:canon-com:device:Scanner:1",
	}
	wsdKeywords    = []string{"scanner", "scan", "printer", "multifunction", "mfp", "all-in-one", "wsd", "escl"}
	wsdNamePattern = regexp.MustCompile(`(?i)(?:SERVER|USN|ST):\s*([^\r\n]+)`)
)

const wsdSOAPProbe = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope" xmlns:wsa="http://schemas.xmlsoap.org/ws/2004/08/addressing" xmlns:wsd="http://schemas.xmlsoap.org/ws/2005/04/discovery" xmlns:wscn="http://schemas.microsoft.com/windows/2006/08/wdp/scan">
<soap:Header>
<wsa:To>urn:schemas-xmlsoap-org:ws:2005:04:discovery</wsa:To>
<wsa:Action>http://schemas.xmlsoap.org/ws/2005/04/discovery/Probe</wsa:Action>
<wsa:MessageID>urn:uuid:%s</wsa:MessageID>
</soap:Header>
<soap:Body><wsd:Probe><wsd:Types>wscn:ScanDeviceType</wsd:Types></wsd:Probe></soap:Body>
</soap:Envelope>`

// WSDProber sends WS-Discovery probes and keeps responders whose reply looks
// like a scanner or multifunction device.
type WSDProber struct {
	cfg  WSDConfig
	send sendFunc
	log  *log.Logger
}

// NewWSDProber creates a prober using the real UDP transport.
func NewWSDProber(cfg WSDConfig) *WSDProber {
	return &WSDProber{cfg: cfg, send: probe.SendAndCollect, log: logger.Named("wsd")}
}

func (p *WSDProber) Name() string { return "wsd" }

type wsdVariant struct {
	dest    string
	payload []byte
}

func (p *WSDProber) variants() []wsdVariant {
	out := make([]wsdVariant, 0, len(wsdSearchTargets)+1)
	for _, st := range wsdSearchTargets {
		out = append(out, wsdVariant{dest: p.cfg.BroadcastAddr, payload: buildWSDSearch(st, p.cfg.MulticastAddr, p.cfg.Port)})
	}
	if p.cfg.SOAPProbe {
		out = append(out, wsdVariant{
			dest:    p.cfg.MulticastAddr,
			payload: []byte(fmt.Sprintf(wsdSOAPProbe, uuid.NewString())),
		})
	}
	return out
}

// Probe sends every payload variant in turn and merges the replies, keeping
// the first hit per source address.
func (p *WSDProber) Probe(ctx context.Context) ([]Device, error) {
	var (
		devices []Device
		lastErr error
		sent    int
	)
	seen := make(map[string]struct{})

	for _, v := range p.variants() {
		if ctx.Err() != nil {
			break
		}
		responses, err := p.send(ctx, v.payload, v.dest, p.cfg.Port, p.cfg.Window, p.cfg.BufferSize)
		if err != nil {
			p.log.Debug("probe variant failed", "dest", v.dest, "err", err)
			lastErr = err
			continue
		}
		sent++
		for _, resp := range responses {
			ip := resp.IP()
			if _, dup := seen[ip]; dup {
				continue
			}
			dev, ok := parseWSDResponse(resp.Data, ip)
			if !ok {
				continue
			}
			seen[ip] = struct{}{}
			devices = append(devices, dev)
		}
	}

	if sent == 0 && lastErr != nil {
		return nil, lastErr
	}
	return devices, nil
}

func buildWSDSearch(st, group string, port int) []byte {
	return []byte("M-SEARCH * HTTP/1.1\r\n" +
		fmt.Sprintf("HOST: %s:%d\r\n", group, port) +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 3\r\n" +
		"ST: " + st + "\r\n" +
		"\r\n")
}

// parseWSDResponse classifies a reply and builds the device it describes.
func parseWSDResponse(data []byte, ip string) (Device, bool) {
	if ip == "" || !containsAny(strings.ToLower(string(data)), wsdKeywords) {
		return Device{}, false
	}
	name := "Network Scanner"
	if m := wsdNamePattern.FindSubmatch(data); m != nil {
		candidate := strings.TrimSpace(string(m[1]))
		if len(candidate) > 5 && len(candidate) < 50 {
			name = candidate
		}
	}
	return Device{
		Identity:  "WSD:" + ip,
		Name:      fmt.Sprintf("%s (%s)", name, ip),
		Origin:    OriginWSD,
		IsNetwork: true,
		Address:   ip,
	}, true
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
