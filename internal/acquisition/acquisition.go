// Package acquisition describes the platform driver binding used to open
// scanners and stream images from them. Implementations live outside this
// module; the types here are the contract the scan session relies on.
package acquisition

import (
	"context"
	"errors"
	"fmt"
)

// LocalDevice is a locally attached scanner reported by the driver layer.
type LocalDevice struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// Service is the capability the platform exposes for scanner access.
type Service interface {
	EnumerateLocalDevices(ctx context.Context) ([]LocalDevice, error)
	OpenDevice(ctx context.Context, handle string) (Device, error)
}

// Device is an opened scanner. Close must be called on every path.
type Device interface {
	ChildItems(ctx context.Context) ([]Item, error)
	Close() error
}

// Item is a scan source below a device, such as a flatbed or a feeder.
type Item interface {
	Category() Category
	ApplySettings(ctx context.Context, settings Settings) error
	Transfer(ctx context.Context, outputPath string) (int64, error)
	Close() error
}

// StatusReporter is implemented by items that can report a mechanical
// condition on request. Status returns nil when the item is ready.
type StatusReporter interface {
	Status(ctx context.Context) error
}

// Category classifies an item.
type Category int

const (
	CategoryOther Category = iota
	CategoryFlatbed
	CategoryFeeder
)

func (c Category) String() string {
	switch c {
	case CategoryFlatbed:
		return "flatbed"
	case CategoryFeeder:
		return "feeder"
	default:
		return "other"
	}
}

// ErrUnavailable is returned when no driver binding is present.
var ErrUnavailable = errors.New("acquisition service unavailable")

// Unavailable is the Service used on hosts without a driver binding. It
// reports no local devices and refuses to open anything.
type Unavailable struct{}

func (Unavailable) EnumerateLocalDevices(context.Context) ([]LocalDevice, error) {
	return nil, nil
}

func (Unavailable) OpenDevice(_ context.Context, handle string) (Device, error) {
	return nil, &DeviceError{Condition: ConditionOffline, Native: handle, Err: ErrUnavailable}
}

// Condition is a driver-reported device state attached to a failure.
type Condition int

const (
	ConditionUnknown Condition = iota
	ConditionAccessDenied
	ConditionOffline
	ConditionTimeout
	ConditionBusy
	ConditionPaperEmpty
	ConditionPaperJam
	ConditionCoverOpen
	ConditionBufferTooSmall
	ConditionNoTransfer
)

var conditionNames = map[Condition]string{
	ConditionUnknown:        "unknown",
	ConditionAccessDenied:   "access denied",
	ConditionOffline:        "offline",
	ConditionTimeout:        "timeout",
	ConditionBusy:           "busy",
	ConditionPaperEmpty:     "paper empty",
	ConditionPaperJam:       "paper jam",
	ConditionCoverOpen:      "cover open",
	ConditionBufferTooSmall: "buffer too small",
	ConditionNoTransfer:     "transfer unsupported",
}

func (c Condition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("condition(%d)", int(c))
}

// DeviceError is a driver failure tagged with the condition it reported.
type DeviceError struct {
	Condition Condition
	Native    string
	Err       error
}

func (e *DeviceError) Error() string {
	msg := e.Condition.String()
	if e.Native != "" {
		msg += " (" + e.Native + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ConditionOf returns the condition carried by err, or ConditionUnknown.
func ConditionOf(err error) Condition {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Condition
	}
	return ConditionUnknown
}
