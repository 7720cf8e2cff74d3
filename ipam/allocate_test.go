package ipam

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/sashashura/netbox/domain"
)

func prefixes(cidrs ...string) []netip.Prefix {
	parsed := make([]netip.Prefix, len(cidrs))
	for i, cidr := range cidrs {
		parsed[i] = netip.MustParsePrefix(cidr)
	}
	return parsed
}

func assertPrefixes(t *testing.T, want []string, got []netip.Prefix) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
	}
	for i, cidr := range want {
		if got[i].String() != cidr {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	}
}

func TestAvailablePrefixes(t *testing.T) {
	t.Run("should return the whole parent when it has no children", func(t *testing.T) {
		got := AvailablePrefixes(netip.MustParsePrefix("10.0.0.0/16"), nil)
		assertPrefixes(t, []string{"10.0.0.0/16"}, got)
	})

	t.Run("should return maximal blocks between children", func(t *testing.T) {
		got := AvailablePrefixes(
			netip.MustParsePrefix("10.0.0.0/16"),
			prefixes("10.0.0.0/24", "10.0.2.0/24"),
		)
		assertPrefixes(t, []string{
			"10.0.1.0/24",
			"10.0.3.0/24",
			"10.0.4.0/22",
			"10.0.8.0/21",
			"10.0.16.0/20",
			"10.0.32.0/19",
			"10.0.64.0/18",
			"10.0.128.0/17",
		}, got)
	})

	t.Run("should return nothing when the children fill the parent", func(t *testing.T) {
		got := AvailablePrefixes(
			netip.MustParsePrefix("10.0.0.0/23"),
			prefixes("10.0.0.0/24", "10.0.1.0/24"),
		)
		if len(got) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%v", got)
		}
	})

	t.Run("should ignore children of the other family", func(t *testing.T) {
		got := AvailablePrefixes(
			netip.MustParsePrefix("10.0.0.0/24"),
			prefixes("2001:db8::/64"),
		)
		assertPrefixes(t, []string{"10.0.0.0/24"}, got)
	})

	t.Run("should handle ipv6 free space", func(t *testing.T) {
		got := AvailablePrefixes(
			netip.MustParsePrefix("2001:db8::/32"),
			prefixes("2001:db8::/34"),
		)
		assertPrefixes(t, []string{
			"2001:db8:4000::/34",
			"2001:db8:8000::/33",
		}, got)
	})
}

func TestFirstAvailablePrefix(t *testing.T) {
	t.Run("should allocate the lowest free block of the requested length", func(t *testing.T) {
		got, err := FirstAvailablePrefix(
			netip.MustParsePrefix("10.0.0.0/16"),
			prefixes("10.0.0.0/24"),
			24,
		)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got.String() != "10.0.1.0/24" {
			t.Fatalf("\nwanted:\n10.0.1.0/24\ngot:\n%s", got)
		}
	})

	t.Run("should carve a small block out of a larger free block", func(t *testing.T) {
		got, err := FirstAvailablePrefix(
			netip.MustParsePrefix("10.0.0.0/16"),
			prefixes("10.0.0.0/17"),
			28,
		)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got.String() != "10.0.128.0/28" {
			t.Fatalf("\nwanted:\n10.0.128.0/28\ngot:\n%s", got)
		}
	})

	t.Run("should fail when only smaller blocks remain", func(t *testing.T) {
		_, err := FirstAvailablePrefix(
			netip.MustParsePrefix("10.0.0.0/23"),
			prefixes("10.0.0.0/24"),
			23,
		)
		if !errors.Is(err, ErrNoSpace) {
			t.Fatalf("\nwanted:\nErrNoSpace\ngot:\n%v", err)
		}
	})

	t.Run("should reject lengths shorter than the parent", func(t *testing.T) {
		_, err := FirstAvailablePrefix(netip.MustParsePrefix("10.0.0.0/24"), nil, 16)
		if err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func leafPrefix(cidr string, pool bool) *domain.Prefix {
	return &domain.Prefix{
		Prefix: netip.MustParsePrefix(cidr),
		Status: domain.PrefixStatusActive,
		IsPool: pool,
	}
}

func usedIPs(addrs ...string) []*domain.IPAddress {
	ips := make([]*domain.IPAddress, len(addrs))
	for i, addr := range addrs {
		ips[i] = &domain.IPAddress{Address: netip.MustParsePrefix(addr)}
	}
	return ips
}

func assertAddrs(t *testing.T, want []string, got []netip.Addr) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
	}
	for i, addr := range want {
		if got[i].String() != addr {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	}
}

func TestAvailableIPs(t *testing.T) {
	t.Run("should exclude the network and broadcast addresses", func(t *testing.T) {
		got := AvailableIPs(leafPrefix("10.0.0.0/29", false), usedIPs("10.0.0.1/29", "10.0.0.3/29"), 0)
		assertAddrs(t, []string{"10.0.0.2", "10.0.0.4", "10.0.0.5", "10.0.0.6"}, got)
	})

	t.Run("should use every address of a pool", func(t *testing.T) {
		got := AvailableIPs(leafPrefix("10.0.0.0/30", true), nil, 0)
		assertAddrs(t, []string{"10.0.0.0", "10.0.0.1", "10.0.0.2", "10.0.0.3"}, got)
	})

	t.Run("should use both addresses of a point-to-point /31", func(t *testing.T) {
		got := AvailableIPs(leafPrefix("10.0.0.0/31", false), nil, 0)
		assertAddrs(t, []string{"10.0.0.0", "10.0.0.1"}, got)
	})

	t.Run("should stop at the requested limit", func(t *testing.T) {
		got := AvailableIPs(leafPrefix("2001:db8::/64", false), usedIPs("2001:db8::1/64"), 3)
		assertAddrs(t, []string{"2001:db8::", "2001:db8::2", "2001:db8::3"}, got)
	})

	t.Run("should return nothing when the prefix is exhausted", func(t *testing.T) {
		got := AvailableIPs(leafPrefix("10.0.0.0/31", false), usedIPs("10.0.0.0/31", "10.0.0.1/31"), 0)
		if len(got) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%v", got)
		}
	})
}

func TestUtilization(t *testing.T) {
	t.Run("should measure assigned addresses against usable space", func(t *testing.T) {
		prefix := leafPrefix("10.0.0.0/29", false)
		got := Utilization(prefix, nil, usedIPs("10.0.0.1/29", "10.0.0.2/29", "10.0.0.3/29"))
		if got != 0.5 {
			t.Fatalf("\nwanted:\n0.5\ngot:\n%v", got)
		}
	})

	t.Run("should not count addresses outside the prefix", func(t *testing.T) {
		prefix := leafPrefix("10.0.0.0/29", false)
		got := Utilization(prefix, nil, usedIPs("10.0.1.1/24"))
		if got != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%v", got)
		}
	})

	t.Run("should measure child coverage for containers", func(t *testing.T) {
		parent := &domain.Prefix{
			Prefix: netip.MustParsePrefix("10.0.0.0/16"),
			Status: domain.PrefixStatusContainer,
		}
		children := []*domain.Prefix{
			leafPrefix("10.0.0.0/18", false),
			leafPrefix("10.0.64.0/18", false),
		}
		got := Utilization(parent, children, nil)
		if got != 0.5 {
			t.Fatalf("\nwanted:\n0.5\ngot:\n%v", got)
		}
	})

	t.Run("should not double-count overlapping children", func(t *testing.T) {
		parent := &domain.Prefix{
			Prefix: netip.MustParsePrefix("10.0.0.0/16"),
			Status: domain.PrefixStatusContainer,
		}
		children := []*domain.Prefix{
			leafPrefix("10.0.0.0/17", false),
			leafPrefix("10.0.0.0/18", false),
		}
		got := Utilization(parent, children, nil)
		if got != 0.5 {
			t.Fatalf("\nwanted:\n0.5\ngot:\n%v", got)
		}
	})
}
