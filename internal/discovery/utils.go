package discovery

import (
	"net"
	"regexp"
	"strconv"
	"strings"
)

var (
	macLinePattern    = regexp.MustCompile(`(?i)([0-9a-f]{1,2}[:-]){5}([0-9a-f]{1,2})`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

func splitHostPort(addr string) (string, int, bool) {
	host, portText, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, false
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return "", 0, false
	}
	return host, port, true
}

func normaliseMAC(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.ToUpper(strings.ReplaceAll(raw, "-", ":"))
	match := macLinePattern.FindString(raw)
	if match == "" {
		return ""
	}
	parts := strings.Split(match, ":")
	if len(parts) != 6 {
		return ""
	}
	for i := range parts {
		if len(parts[i]) == 1 {
			parts[i] = "0" + parts[i]
		}
	}
	joined := strings.Join(parts, ":")
	if joined == "00:00:00:00:00:00" {
		return ""
	}
	return joined
}

// dedupeByIdentity keeps the first device for each identity.
func dedupeByIdentity(devices []Device) []Device {
	if len(devices) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(devices))
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if _, ok := seen[d.Identity]; ok {
			continue
		}
		seen[d.Identity] = struct{}{}
		out = append(out, d)
	}
	return out
}
