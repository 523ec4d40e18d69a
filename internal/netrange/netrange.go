package netrange

import (
	"errors"
	"fmt"
	"iter"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// ErrInvalidNetwork is returned when a network descriptor cannot be parsed
// or is not an IPv4 network. It is the only error that aborts a scan.
var ErrInvalidNetwork = errors.New("invalid network descriptor")

// Parse parses an IPv4 network in CIDR notation (e.g. "192.168.1.0/24").
// Host bits are masked off, so "192.168.1.77/24" parses as 192.168.1.0/24.
func Parse(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Prefix{}, fmt.Errorf("%w: empty", ErrInvalidNetwork)
	}

	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q: %w", ErrInvalidNetwork, s, err)
	}
	if !prefix.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: %q is not an IPv4 network", ErrInvalidNetwork, s)
	}

	return prefix.Masked(), nil
}

// bounds returns the first and last host address of prefix.
func bounds(prefix netip.Prefix) (first, last netip.Addr) {
	r := netipx.RangeOfPrefix(prefix.Masked())
	first, last = r.From(), r.To()
	if prefix.Bits() < 31 {
		first = first.Next()
		last = last.Prev()
	}
	return first, last
}

// Hosts returns a lazy, ascending sequence of the host addresses in prefix.
// The sequence is finite and never repeats an address.
func Hosts(prefix netip.Prefix) iter.Seq[netip.Addr] {
	return func(yield func(netip.Addr) bool) {
		if !prefix.IsValid() {
			return
		}
		first, last := bounds(prefix)
		for addr := first; addr.IsValid() && addr.Compare(last) <= 0; addr = addr.Next() {
			if !yield(addr) {
				return
			}
		}
	}
}

// Count returns the number of addresses Hosts yields for prefix.
func Count(prefix netip.Prefix) int {
	if !prefix.IsValid() {
		return 0
	}
	size := 1 << (prefix.Addr().BitLen() - prefix.Bits())
	if prefix.Bits() < 31 {
		size -= 2
	}
	return size
}

// Contains reports whether addr is one of the host addresses of prefix.
func Contains(prefix netip.Prefix, addr netip.Addr) bool {
	if !prefix.IsValid() || !prefix.Contains(addr) {
		return false
	}
	first, last := bounds(prefix)
	return addr.Compare(first) >= 0 && addr.Compare(last) <= 0
}
