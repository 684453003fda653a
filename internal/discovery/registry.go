package discovery

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable view of one discovery run. Devices keep the order
// in which they were found.
type Snapshot struct {
	ID      string    `json:"id" plist:"id"`
	Devices []Device  `json:"devices" plist:"devices"`
	Updated time.Time `json:"updated" plist:"updated"`
}

// Lookup returns the first device whose display name equals name.
func (s Snapshot) Lookup(name string) (Device, bool) {
	name = strings.TrimSpace(name)
	for _, d := range s.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// Names lists display names in registry order.
func (s Snapshot) Names() []string {
	out := make([]string, 0, len(s.Devices))
	for _, d := range s.Devices {
		out = append(out, d.Name)
	}
	return out
}

// Registry accumulates devices for a single discovery run.
type Registry struct {
	mu      sync.Mutex
	id      string
	devices map[string]Device
	order   []string
}

// NewRegistry creates an empty registry with a fresh snapshot ID.
func NewRegistry() *Registry {
	return &Registry{
		id:      uuid.NewString(),
		devices: make(map[string]Device),
	}
}

// Add appends d unless a device with the same identity is already present or
// d has no display name. It reports whether d was added.
func (r *Registry) Add(d Device) bool {
	if !admissible(d) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.devices[d.Identity]; exists {
		return false
	}
	r.devices[d.Identity] = d
	r.order = append(r.order, d.Identity)
	return true
}

// admissible reports whether d carries the identity and display name every
// registry entry needs.
func admissible(d Device) bool {
	return d.Identity != "" && strings.TrimSpace(d.Name) != ""
}

// Snapshot copies the current contents.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() Snapshot {
	devices := make([]Device, 0, len(r.order))
	for _, key := range r.order {
		if d, ok := r.devices[key]; ok {
			devices = append(devices, d)
		}
	}
	return Snapshot{
		ID:      r.id,
		Devices: devices,
		Updated: time.Now().UTC(),
	}
}
