package discovery

import (
	"fmt"
	"net"
	"strings"
)

// LocalPrefixes returns one "a.b.c." prefix per usable IPv4 interface, in
// interface order.
func LocalPrefixes() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var prefixes []string
	seen := make(map[string]struct{})
	for i := range ifaces {
		if rejectInterface(&ifaces[i]) {
			continue
		}
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
				continue
			}
			prefix := fmt.Sprintf("%d.%d.%d.", ip4[0], ip4[1], ip4[2])
			if _, dup := seen[prefix]; !dup {
				seen[prefix] = struct{}{}
				prefixes = append(prefixes, prefix)
			}
			break
		}
	}
	return prefixes
}

// rejectInterface filters out interfaces that cannot reach LAN scanners:
// down, loopback, point-to-point tunnels and links without multicast.
func rejectInterface(iface *net.Interface) bool {
	if iface.Flags&net.FlagUp == 0 {
		return true
	}
	if iface.Flags&net.FlagLoopback != 0 {
		return true
	}
	if iface.Flags&net.FlagPointToPoint != 0 {
		return true
	}
	return iface.Flags&net.FlagMulticast == 0
}

// normalisePrefixes accepts "a.b.c", "a.b.c." or a CIDR such as
// "a.b.c.0/24" and returns "a.b.c." forms, dropping anything else.
func normalisePrefixes(raw []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if _, ipNet, err := net.ParseCIDR(p); err == nil {
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				p = fmt.Sprintf("%d.%d.%d.", ip4[0], ip4[1], ip4[2])
			}
		}
		p = strings.TrimSuffix(p, ".") + "."
		if net.ParseIP(p+"1").To4() == nil || strings.Count(p, ".") != 3 {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
