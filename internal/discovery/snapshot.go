package discovery

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"howett.net/plist"
)

// Format selects the encoding of an exported snapshot.
type Format string

const (
	FormatJSON  Format = "json"
	FormatPlist Format = "plist"
)

const snapshotVersion = 1

var (
	ErrUnknownFormat      = errors.New("unknown snapshot format")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrInvalidSnapshot    = errors.New("invalid snapshot")
)

type snapshotEnvelope struct {
	Version  int      `json:"version" plist:"version"`
	Snapshot Snapshot `json:"snapshot" plist:"snapshot"`
}

// ParseFormat accepts "json" or "plist"; an empty string means JSON.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatPlist:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPlist {
		return "application/x-plist"
	}
	return "application/json"
}

// Marshal encodes snap in a versioned envelope.
func Marshal(snap Snapshot, format Format) ([]byte, error) {
	env := snapshotEnvelope{Version: snapshotVersion, Snapshot: snap}
	switch format {
	case FormatJSON, "":
		return sonic.MarshalIndent(env, "", "  ")
	case FormatPlist:
		return plist.MarshalIndent(env, plist.XMLFormat, "\t")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Export writes snap to w.
func Export(w io.Writer, snap Snapshot, format Format) error {
	data, err := Marshal(snap, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Import reads a snapshot written by Export.
func Import(r io.Reader, format Format) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var env snapshotEnvelope
	switch format {
	case FormatJSON, "":
		err = sonic.Unmarshal(data, &env)
	case FormatPlist:
		_, err = plist.Unmarshal(data, &env)
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if err := checkDevices(env.Snapshot); err != nil {
		return Snapshot{}, err
	}
	return env.Snapshot, nil
}

// checkDevices holds an imported snapshot to the rules Registry.Add enforces
// during discovery.
func checkDevices(snap Snapshot) error {
	if strings.TrimSpace(snap.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSnapshot)
	}
	seen := make(map[string]struct{}, len(snap.Devices))
	for i, d := range snap.Devices {
		if !admissible(d) {
			return fmt.Errorf("%w: device %d needs an identity and a name", ErrInvalidSnapshot, i)
		}
		if _, dup := seen[d.Identity]; dup {
			return fmt.Errorf("%w: duplicate identity %q", ErrInvalidSnapshot, d.Identity)
		}
		seen[d.Identity] = struct{}{}
	}
	return nil
}
