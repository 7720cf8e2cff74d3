package ipam

import (
	"net/netip"
	"sort"

	"github.com/sashashura/netbox/domain"
)

// TreeNode is one prefix in the nested address plan.
type TreeNode struct {
	Prefix   *domain.Prefix
	Depth    int
	Children []*TreeNode
}

// Descendants counts every prefix nested below the node.
func (n *TreeNode) Descendants() int {
	total := len(n.Children)
	for _, child := range n.Children {
		total += child.Descendants()
	}
	return total
}

// contains reports whether outer fully contains inner. Equal prefixes nest,
// matching how a duplicate announcement shows up under its twin.
func contains(outer, inner netip.Prefix) bool {
	return outer.Addr().Is4() == inner.Addr().Is4() &&
		outer.Bits() <= inner.Bits() &&
		outer.Contains(inner.Addr())
}

// BuildTree nests prefixes by containment. Containment never crosses VRF
// boundaries; roots come back ordered by VRF, address, and mask length.
func BuildTree(prefixes []*domain.Prefix) []*TreeNode {
	sorted := make([]*domain.Prefix, len(prefixes))
	copy(sorted, prefixes)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.VRF != b.VRF {
			return a.VRF < b.VRF
		}
		av, bv := addrValue(a.Prefix.Masked().Addr()), addrValue(b.Prefix.Masked().Addr())
		if a.Prefix.Addr().Is4() != b.Prefix.Addr().Is4() {
			return a.Prefix.Addr().Is4()
		}
		if av != bv {
			if av.hi != bv.hi {
				return av.hi < bv.hi
			}
			return av.lo < bv.lo
		}
		return a.Prefix.Bits() < b.Prefix.Bits()
	})

	var roots []*TreeNode
	var stack []*TreeNode

	for _, prefix := range sorted {
		node := &TreeNode{Prefix: prefix}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.Prefix.VRF == prefix.VRF && contains(top.Prefix.Prefix, prefix.Prefix) {
				break
			}
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1]
			node.Depth = parent.Depth + 1
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}
	return roots
}
