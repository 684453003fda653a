package discovery

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/endobit/oui"
)

// enrichHardware fills MAC address and vendor for a network device using the
// host's ARP cache. The cache is only populated for hosts we recently spoke
// to, which is true right after probing.
func enrichHardware(ctx context.Context, d *Device) {
	if !d.IsNetwork || d.MacAddress != "" {
		return
	}
	host := d.Host()
	if host == "" {
		return
	}
	mac := lookupMACFromProc(host)
	if mac == "" {
		mac = lookupMACViaARPCommand(ctx, host)
	}
	if mac == "" {
		return
	}
	d.MacAddress = mac
	if d.Manufacturer == "" {
		d.Manufacturer = lookupManufacturer(mac)
	}
}

func lookupMACFromProc(host string) string {
	data, err := os.ReadFile("/proc/net/arp")
	if err != nil {
		return ""
	}
	return parseARPTable(string(data), host)
}

// parseARPTable finds host in the /proc/net/arp layout.
func parseARPTable(table, host string) string {
	lines := strings.Split(table, "\n")
	if len(lines) < 2 {
		return ""
	}
	for _, line := range lines[1:] {
		fields := whitespacePattern.Split(strings.TrimSpace(line), -1)
		if len(fields) < 4 || fields[0] != host {
			continue
		}
		if mac := normaliseMAC(fields[3]); mac != "" {
			return mac
		}
	}
	return ""
}

func lookupMACViaARPCommand(ctx context.Context, host string) string {
	if _, err := exec.LookPath("arp"); err != nil {
		return ""
	}
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "arp", "-a", host)
	} else {
		cmd = exec.CommandContext(ctx, "arp", "-n", host)
	}
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return normaliseMAC(macLinePattern.FindString(string(output)))
}

func lookupManufacturer(mac string) string {
	if mac == "" {
		return ""
	}
	return oui.Vendor(strings.ToLower(mac))
}
