package discovery

import "testing"

func TestNormalisePrefixes(t *testing.T) {
	got := normalisePrefixes([]string{"192.168.1", "192.168.1.", "10.0.0.0/24", "bogus", "1.2.3.4.5"})
	want := []string{"192.168.1.", "10.0.0."}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("prefix %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestParseARPTable(t *testing.T) {
	table := "IP address       HW type     Flags       HW address            Mask     Device\n" +
		"192.168.1.20     0x1         0x2         8c-85-90-12-34-56     *        eth0\n" +
		"192.168.1.21     0x1         0x0         00:00:00:00:00:00     *        eth0\n"
	if got := parseARPTable(table, "192.168.1.20"); got != "8C:85:90:12:34:56" {
		t.Fatalf("unexpected mac %q", got)
	}
	if got := parseARPTable(table, "192.168.1.21"); got != "" {
		t.Fatalf("incomplete entry should be ignored, got %q", got)
	}
}

func TestDeviceAddressParts(t *testing.T) {
	d := Device{Address: "10.0.0.5:8443"}
	if d.Host() != "10.0.0.5" || d.Port() != 8443 {
		t.Fatalf("unexpected parts %s %d", d.Host(), d.Port())
	}
	d = Device{Address: "10.0.0.6"}
	if d.Host() != "10.0.0.6" || d.Port() != 0 {
		t.Fatalf("unexpected parts %s %d", d.Host(), d.Port())
	}
}
