package ipam

import (
	"sort"

	"github.com/sashashura/netbox/domain"
)

// Utilization returns the consumed fraction of a prefix in [0, 1].
//
// Container prefixes measure how much of their space the child prefixes
// cover. Leaf prefixes measure assigned addresses against the usable host
// range. Arithmetic is float64 throughout; the precision loss on huge IPv6
// spans is irrelevant for a percentage.
func Utilization(prefix *domain.Prefix, children []*domain.Prefix, ips []*domain.IPAddress) float64 {
	if prefix.Status == domain.PrefixStatusContainer {
		return childCoverage(prefix, children)
	}

	first, last := usableRange(prefix)
	usable := rangeSize(first, last)
	if usable <= 0 {
		return 0
	}

	assigned := 0
	for _, ip := range ips {
		addr := ip.Address.Addr()
		if addr.Compare(first) >= 0 && addr.Compare(last) <= 0 {
			assigned++
		}
	}

	fraction := float64(assigned) / usable
	if fraction > 1 {
		return 1
	}
	return fraction
}

// childCoverage sums the space the children occupy inside the parent. The
// children are collapsed into disjoint spans first so overlapping or
// duplicate entries are not double-counted.
func childCoverage(parent *domain.Prefix, children []*domain.Prefix) float64 {
	network := parent.Prefix.Masked()
	total := rangeSize(network.Addr(), lastAddr(network))
	if total <= 0 {
		return 0
	}

	covered := 0.0
	for _, span := range coveredSpans(parent, children) {
		covered += rangeSize(span.start, span.end)
	}

	fraction := covered / total
	if fraction > 1 {
		return 1
	}
	return fraction
}

// coveredSpans clips the children to the parent and merges overlaps.
func coveredSpans(parent *domain.Prefix, children []*domain.Prefix) []addrRange {
	network := parent.Prefix.Masked()
	parentEnd := lastAddr(network)

	clipped := make([]addrRange, 0, len(children))
	for _, child := range children {
		p := child.Prefix.Masked()
		if p.Addr().Is4() != network.Addr().Is4() {
			continue
		}
		start, end := p.Addr(), lastAddr(p)
		if end.Compare(network.Addr()) < 0 || start.Compare(parentEnd) > 0 {
			continue
		}
		if start.Compare(network.Addr()) < 0 {
			start = network.Addr()
		}
		if end.Compare(parentEnd) > 0 {
			end = parentEnd
		}
		clipped = append(clipped, addrRange{start: start, end: end})
	}

	sort.Slice(clipped, func(i, j int) bool {
		return clipped[i].start.Compare(clipped[j].start) < 0
	})

	var merged []addrRange
	for _, span := range clipped {
		if len(merged) == 0 {
			merged = append(merged, span)
			continue
		}
		tail := &merged[len(merged)-1]
		if span.start.Compare(tail.end) <= 0 {
			if span.end.Compare(tail.end) > 0 {
				tail.end = span.end
			}
			continue
		}
		merged = append(merged, span)
	}
	return merged
}
