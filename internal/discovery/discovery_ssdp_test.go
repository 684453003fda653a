package discovery

import (
	"context"
	"strings"
	"testing"
)

func TestParseSSDPResponseRoundTrip(t *testing.T) {
	body := "HTTP/1.1 200 OK\r\nLOCATION: http://192.168.1.50:80/desc.xml\r\nSERVER: Linux/3.x UPnP/1.0 Acme Printer\r\n\r\n"
	dev, ok := parseSSDPResponse([]byte(body), "192.168.1.50")
	if !ok {
		t.Fatal("expected printer reply to be accepted")
	}
	if !strings.HasPrefix(dev.Identity, "SSDP") || dev.Origin != OriginSSDP {
		t.Fatalf("expected SSDP identity, got %+v", dev)
	}
	if !strings.Contains(dev.Name, "192.168.1.50") {
		t.Fatalf("expected name to contain the host, got %q", dev.Name)
	}
}

func TestParseSSDPResponseRequiresLocationAndKeyword(t *testing.T) {
	if _, ok := parseSSDPResponse([]byte("HTTP/1.1 200 OK\r\nSERVER: Acme Printer\r\n"), "10.0.0.2"); ok {
		t.Fatal("reply without LOCATION must be rejected")
	}
	if _, ok := parseSSDPResponse([]byte("HTTP/1.1 200 OK\r\nLOCATION: http://10.0.0.2/tv.xml\r\nSERVER: SmartTV\r\n"), "10.0.0.2"); ok {
		t.Fatal("reply without device keyword must be rejected")
	}
}

func TestParseSSDPResponseFallsBackToSender(t *testing.T) {
	dev, ok := parseSSDPResponse([]byte("HTTP/1.1 200 OK\r\nLocation: not a url\r\nST: urn:schemas-upnp-org:service:Scanner:1\r\n"), "10.0.0.3")
	if !ok {
		t.Fatal("expected scanner reply to be accepted")
	}
	if dev.Name != "SSDP Scanner (10.0.0.3)" {
		t.Fatalf("unexpected name %q", dev.Name)
	}
}

func TestSSDPProberDedupes(t *testing.T) {
	send, calls := fakeSend(
		reply("192.168.1.50", "LOCATION: http://192.168.1.50/d.xml\r\nprinter"),
		reply("192.168.1.50", "LOCATION: http://192.168.1.50/d.xml\r\nprinter"),
	)
	p := &SSDPProber{cfg: DefaultConfig().SSDP, send: send, log: testLogger()}
	devices, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *calls != 3 {
		t.Fatalf("expected three search targets, got %d", *calls)
	}
	if len(devices) != 1 {
		t.Fatalf("expected one device, got %d", len(devices))
	}
}
