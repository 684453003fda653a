package discovery

import (
	"context"
	"time"

	"scanbridge/internal/probe"
)

// Origin names the mechanism that found a device.
type Origin string

const (
	OriginLocal Origin = "Local"
	OriginWSD   Origin = "WSD"
	OriginMDNS  Origin = "mDNS"
	OriginSSDP  Origin = "SSDP"
	OriginESCL  Origin = "eSCL"
)

// Device is a scanner reported by one discovery mechanism. Identity is unique
// within a snapshot; Name is what users pick from and is never empty.
type Device struct {
	Identity     string `json:"identity" plist:"identity"`
	Name         string `json:"name" plist:"name"`
	Origin       Origin `json:"origin" plist:"origin"`
	IsNetwork    bool   `json:"isNetwork" plist:"isNetwork"`
	Address      string `json:"address,omitempty" plist:"address,omitempty"`
	Instance     string `json:"instance,omitempty" plist:"instance,omitempty"`
	MacAddress   string `json:"macAddress,omitempty" plist:"macAddress,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty" plist:"manufacturer,omitempty"`
}

// Host returns the IP part of a network device's address.
func (d Device) Host() string {
	host, _, ok := splitHostPort(d.Address)
	if !ok {
		return d.Address
	}
	return host
}

// Port returns the TCP port recorded for the device, or 0 when the protocol
// that found it did not reveal one.
func (d Device) Port() int {
	_, port, ok := splitHostPort(d.Address)
	if !ok {
		return 0
	}
	return port
}

// Prober finds network scanners with one protocol. A failing prober returns
// an error and its partial results are discarded by the caller.
type Prober interface {
	Name() string
	Probe(ctx context.Context) ([]Device, error)
}

// Budgeted is implemented by probers that need a wall-clock cap applied by
// the orchestrator.
type Budgeted interface {
	Budget() time.Duration
}

type sendFunc func(ctx context.Context, payload []byte, dest string, port int, listen time.Duration, bufSize int) ([]probe.Response, error)
