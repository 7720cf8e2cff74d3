package ipam

import (
	"fmt"
	"net/netip"
	"sort"

	"github.com/sashashura/netbox/domain"
)

// ErrNoSpace is returned when an allocation request cannot be satisfied from
// the free space of the parent prefix.
var ErrNoSpace = fmt.Errorf("no free space for the requested allocation")

// addrRange is an inclusive span of addresses within one family.
type addrRange struct {
	start netip.Addr
	end   netip.Addr
}

// freeRanges subtracts the child prefixes from the parent and returns the
// remaining spans, lowest first. Children outside the parent or of the other
// family are ignored; overlapping children are tolerated.
func freeRanges(parent netip.Prefix, children []netip.Prefix) []addrRange {
	parent = parent.Masked()
	parentEnd := lastAddr(parent)

	used := make([]addrRange, 0, len(children))
	for _, child := range children {
		if child.Addr().Is4() != parent.Addr().Is4() {
			continue
		}
		child = child.Masked()
		start, end := child.Addr(), lastAddr(child)
		if end.Compare(parent.Addr()) < 0 || start.Compare(parentEnd) > 0 {
			continue
		}
		if start.Compare(parent.Addr()) < 0 {
			start = parent.Addr()
		}
		if end.Compare(parentEnd) > 0 {
			end = parentEnd
		}
		used = append(used, addrRange{start: start, end: end})
	}
	sort.Slice(used, func(i, j int) bool {
		return used[i].start.Compare(used[j].start) < 0
	})

	var free []addrRange
	cursor := parent.Addr()
	for _, span := range used {
		if span.end.Compare(cursor) < 0 {
			continue
		}
		if span.start.Compare(cursor) > 0 {
			free = append(free, addrRange{start: cursor, end: span.start.Prev()})
		}
		if span.end.Compare(parentEnd) >= 0 {
			return free
		}
		cursor = span.end.Next()
	}
	if cursor.Compare(parentEnd) <= 0 {
		free = append(free, addrRange{start: cursor, end: parentEnd})
	}
	return free
}

// AvailablePrefixes returns the free space inside the parent as a minimal
// list of maximal CIDR blocks, lowest first.
func AvailablePrefixes(parent netip.Prefix, children []netip.Prefix) []netip.Prefix {
	var available []netip.Prefix
	for _, span := range freeRanges(parent, children) {
		available = append(available, rangeToPrefixes(span.start, span.end)...)
	}
	return available
}

// FirstAvailablePrefix returns the lowest free sub-prefix of the requested
// length, or ErrNoSpace when nothing that large remains.
func FirstAvailablePrefix(parent netip.Prefix, children []netip.Prefix, newLen int) (netip.Prefix, error) {
	width := addrBits(parent.Addr())
	if newLen < parent.Bits() || newLen > width {
		return netip.Prefix{}, fmt.Errorf("requested length /%d is outside parent %s", newLen, parent)
	}
	for _, block := range AvailablePrefixes(parent, children) {
		if block.Bits() <= newLen {
			return netip.PrefixFrom(block.Addr(), newLen), nil
		}
	}
	return netip.Prefix{}, fmt.Errorf("allocating /%d in %s: %w", newLen, parent, ErrNoSpace)
}

// usableRange returns the first and last assignable host address of a prefix.
// IPv4 network and broadcast addresses are excluded below /31 unless the
// prefix is a pool. IPv6 reserves nothing.
func usableRange(prefix *domain.Prefix) (netip.Addr, netip.Addr) {
	network := prefix.Prefix.Masked()
	first := network.Addr()
	last := lastAddr(network)
	if first.Is4() && network.Bits() < 31 && !prefix.IsPool {
		first = first.Next()
		last = last.Prev()
	}
	return first, last
}

// AvailableIPs returns up to limit free host addresses inside the prefix,
// lowest first. The used list is matched on the bare address regardless of
// its mask.
func AvailableIPs(prefix *domain.Prefix, used []*domain.IPAddress, limit int) []netip.Addr {
	if limit <= 0 {
		limit = 100
	}
	taken := make(map[netip.Addr]bool, len(used))
	for _, ip := range used {
		taken[ip.Address.Addr()] = true
	}

	first, last := usableRange(prefix)
	var available []netip.Addr
	for addr := first; addr.Compare(last) <= 0; addr = addr.Next() {
		if !taken[addr] {
			available = append(available, addr)
			if len(available) == limit {
				break
			}
		}
		if addr == last {
			break
		}
	}
	return available
}
