package netrange

import (
	"errors"
	"net/netip"
	"slices"
	"testing"
)

// TestParse tests network descriptor parsing.
func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("valid networks", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			input string
			want  string
		}{
			{"192.168.1.0/24", "192.168.1.0/24"},
			{"10.0.0.0/8", "10.0.0.0/8"},
			{" 172.16.5.0/30 ", "172.16.5.0/30"},
			{"192.168.1.77/24", "192.168.1.0/24"},
			{"10.1.2.3/32", "10.1.2.3/32"},
		}

		for _, tt := range tests {
			t.Run(tt.input, func(t *testing.T) {
				t.Parallel()
				got, err := Parse(tt.input)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.String() != tt.want {
					t.Errorf("got %s, expected %s", got, tt.want)
				}
			})
		}
	})

	t.Run("invalid networks", func(t *testing.T) {
		t.Parallel()

		inputs := []string{
			"",
			"   ",
			"192.168.1.0",
			"192.168.1.0/33",
			"300.1.1.0/24",
			"not-a-network",
			"fe80::/64",
			"::1/128",
		}

		for _, input := range inputs {
			t.Run(input, func(t *testing.T) {
				t.Parallel()
				_, err := Parse(input)
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidNetwork) {
					t.Errorf("expected ErrInvalidNetwork, got %v", err)
				}
			})
		}
	})
}

// TestHosts tests host enumeration.
func TestHosts(t *testing.T) {
	t.Parallel()

	t.Run("slash 24 yields 254 ascending hosts", func(t *testing.T) {
		t.Parallel()

		hosts := slices.Collect(Hosts(netip.MustParsePrefix("192.168.1.0/24")))
		if len(hosts) != 254 {
			t.Fatalf("expected 254 hosts, got %d", len(hosts))
		}
		if hosts[0] != netip.MustParseAddr("192.168.1.1") {
			t.Errorf("expected first host 192.168.1.1, got %s", hosts[0])
		}
		if hosts[len(hosts)-1] != netip.MustParseAddr("192.168.1.254") {
			t.Errorf("expected last host 192.168.1.254, got %s", hosts[len(hosts)-1])
		}
		for i := 1; i < len(hosts); i++ {
			if hosts[i-1].Compare(hosts[i]) >= 0 {
				t.Fatalf("hosts not strictly ascending at %d: %s >= %s", i, hosts[i-1], hosts[i])
			}
		}
		for _, h := range hosts {
			if h == netip.MustParseAddr("192.168.1.0") || h == netip.MustParseAddr("192.168.1.255") {
				t.Errorf("network or broadcast address %s enumerated", h)
			}
		}
	})

	t.Run("small prefixes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			prefix string
			want   []string
		}{
			{"10.0.0.0/30", []string{"10.0.0.1", "10.0.0.2"}},
			{"10.0.0.0/31", []string{"10.0.0.0", "10.0.0.1"}},
			{"10.0.0.9/32", []string{"10.0.0.9"}},
		}

		for _, tt := range tests {
			t.Run(tt.prefix, func(t *testing.T) {
				t.Parallel()
				var got []string
				for addr := range Hosts(netip.MustParsePrefix(tt.prefix)) {
					got = append(got, addr.String())
				}
				if !slices.Equal(got, tt.want) {
					t.Errorf("got %v, expected %v", got, tt.want)
				}
			})
		}
	})

	t.Run("stops when consumer breaks", func(t *testing.T) {
		t.Parallel()

		n := 0
		for range Hosts(netip.MustParsePrefix("10.0.0.0/16")) {
			n++
			if n == 3 {
				break
			}
		}
		if n != 3 {
			t.Errorf("expected 3 iterations, got %d", n)
		}
	})

	t.Run("invalid prefix yields nothing", func(t *testing.T) {
		t.Parallel()

		for range Hosts(netip.Prefix{}) {
			t.Fatal("expected no hosts")
		}
	})
}

// TestCount tests that Count matches Hosts.
func TestCount(t *testing.T) {
	t.Parallel()

	prefixes := []string{"192.168.1.0/24", "10.0.0.0/30", "10.0.0.0/31", "10.0.0.1/32", "172.16.0.0/20"}
	for _, p := range prefixes {
		t.Run(p, func(t *testing.T) {
			t.Parallel()
			prefix := netip.MustParsePrefix(p)
			want := len(slices.Collect(Hosts(prefix)))
			if got := Count(prefix); got != want {
				t.Errorf("Count = %d, Hosts yielded %d", got, want)
			}
		})
	}

	if Count(netip.Prefix{}) != 0 {
		t.Error("expected zero for invalid prefix")
	}
}

// TestContains tests host membership.
func TestContains(t *testing.T) {
	t.Parallel()

	prefix := netip.MustParsePrefix("192.168.1.0/24")
	tests := []struct {
		addr string
		want bool
	}{
		{"192.168.1.1", true},
		{"192.168.1.254", true},
		{"192.168.1.0", false},
		{"192.168.1.255", false},
		{"192.168.2.1", false},
	}
	for _, tt := range tests {
		if got := Contains(prefix, netip.MustParseAddr(tt.addr)); got != tt.want {
			t.Errorf("Contains(%s) = %v, expected %v", tt.addr, got, tt.want)
		}
	}
}
