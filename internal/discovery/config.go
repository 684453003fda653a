package discovery

import (
	"errors"
	"fmt"
	"time"
)

// WSDConfig tunes the WS-Discovery prober.
type WSDConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Window        time.Duration `yaml:"window"`
	BufferSize    int           `yaml:"buffer_size"`
	BroadcastAddr string        `yaml:"broadcast_addr"`
	MulticastAddr string        `yaml:"multicast_addr"`
	Port          int           `yaml:"port"`
	SOAPProbe     bool          `yaml:"soap_probe"`
}

// MDNSConfig tunes the multicast DNS prober.
type MDNSConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Window         time.Duration `yaml:"window"`
	BufferSize     int           `yaml:"buffer_size"`
	Group          string        `yaml:"group"`
	Port           int           `yaml:"port"`
	Services       []string      `yaml:"services"`
	Browse         bool          `yaml:"browse"`
	BrowseServices []string      `yaml:"browse_services"`
	BrowseWindow   time.Duration `yaml:"browse_window"`
}

// SSDPConfig tunes the SSDP prober.
type SSDPConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Window        time.Duration `yaml:"window"`
	BufferSize    int           `yaml:"buffer_size"`
	Group         string        `yaml:"group"`
	Port          int           `yaml:"port"`
	SearchTargets []string      `yaml:"search_targets"`
}

// ESCLConfig tunes the eSCL range scanner. An empty Prefixes list means the
// prefixes are taken from the local interfaces.
type ESCLConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Ports            []int         `yaml:"ports"`
	Endpoints        []string      `yaml:"endpoints"`
	InfoEndpoints    []string      `yaml:"info_endpoints"`
	Prefixes         []string      `yaml:"prefixes"`
	FallbackPrefixes []string      `yaml:"fallback_prefixes"`
	HostFirst        int           `yaml:"host_first"`
	HostLast         int           `yaml:"host_last"`
	HostConcurrency  int           `yaml:"host_concurrency"`
	Attempts         int           `yaml:"attempts"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	AttemptDelay     time.Duration `yaml:"attempt_delay"`
	RateLimit        float64       `yaml:"rate_limit"`
	Budget           time.Duration `yaml:"budget"`
}

// Config groups the prober settings.
type Config struct {
	Enrich bool          `yaml:"enrich"`
	Budget time.Duration `yaml:"budget"`
	WSD    WSDConfig     `yaml:"wsd"`
	MDNS   MDNSConfig    `yaml:"mdns"`
	SSDP   SSDPConfig    `yaml:"ssdp"`
	ESCL   ESCLConfig    `yaml:"escl"`
}

// DefaultConfig returns the settings used when no config file overrides them.
func DefaultConfig() Config {
	return Config{
		Enrich: true,
		WSD: WSDConfig{
			Enabled:       true,
			Window:        2 * time.Second,
			BufferSize:    4096,
			BroadcastAddr: "255.255.255.255",
			MulticastAddr: "239.255.255.250",
			Port:          3702,
			SOAPProbe:     true,
		},
		MDNS: MDNSConfig{
			Enabled:        true,
			Window:         time.Second,
			BufferSize:     1024,
			Group:          "224.0.0.251",
			Port:           5353,
			Services:       []string{"_scanner._tcp.local", "_ipp._tcp.local", "_http._tcp.local", "_printer._tcp.local"},
			Browse:         true,
			BrowseServices: []string{"_uscan._tcp", "_uscans._tcp"},
			BrowseWindow:   2 * time.Second,
		},
		SSDP: SSDPConfig{
			Enabled:       true,
			Window:        2 * time.Second,
			BufferSize:    2048,
			Group:         "239.255.255.250",
			Port:          1900,
			SearchTargets: []string{"upnp:rootdevice", "urn:schemas-upnp-org:device:Printer:1", "urn:schemas-upnp-org:service:Scanner:1"},
		},
		ESCL: ESCLConfig{
			Enabled: true,
			Ports:   []int{80, 443, 8080, 8443, 631},
			Endpoints: []string{
				"/eSCL/ScannerCapabilities",
				"/eSCL/ScannerStatus",
				"/ipp/print",
				"/hp/device/info_ConfigDyn.xml",
				"/canon/info/device.xml",
				"/DevMgmt/DiscoveryTree.xml",
			},
			InfoEndpoints: []string{
				"/eSCL/ScannerCapabilities",
				"/DevMgmt/DiscoveryTree.xml",
				"/hp/device/info_ConfigDyn.xml",
				"/canon/info/device.xml",
			},
			FallbackPrefixes: []string{"192.168.1.", "192.168.0.", "10.0.0.", "172.16.0."},
			HostFirst:        1,
			HostLast:         254,
			HostConcurrency:  16,
			Attempts:         2,
			ConnectTimeout:   time.Second,
			RequestTimeout:   2 * time.Second,
			AttemptDelay:     10 * time.Millisecond,
			RateLimit:        200,
			Budget:           10 * time.Second,
		},
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Budget < 0 {
		return errors.New("discovery.budget cannot be negative")
	}
	if c.WSD.Window < 0 || c.MDNS.Window < 0 || c.SSDP.Window < 0 {
		return errors.New("listen windows cannot be negative")
	}
	if c.MDNS.Enabled && len(c.MDNS.Services) == 0 {
		return errors.New("mdns.services cannot be empty")
	}
	if c.SSDP.Enabled && len(c.SSDP.SearchTargets) == 0 {
		return errors.New("ssdp.search_targets cannot be empty")
	}
	e := c.ESCL
	if !e.Enabled {
		return nil
	}
	if len(e.Ports) == 0 {
		return errors.New("escl.ports cannot be empty")
	}
	if len(e.Endpoints) == 0 {
		return errors.New("escl.endpoints cannot be empty")
	}
	if e.HostFirst < 1 || e.HostLast > 254 || e.HostFirst > e.HostLast {
		return fmt.Errorf("escl host range %d-%d is invalid", e.HostFirst, e.HostLast)
	}
	if e.Attempts <= 0 {
		return errors.New("escl.attempts must be greater than 0")
	}
	if e.HostConcurrency <= 0 {
		return errors.New("escl.host_concurrency must be greater than 0")
	}
	if e.Budget < 0 || e.AttemptDelay < 0 {
		return errors.New("escl durations cannot be negative")
	}
	return nil
}
