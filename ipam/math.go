package ipam

import (
	"encoding/binary"
	"math"
	"math/bits"
	"net/netip"
)

// uint128 holds an address as an unsigned 128-bit integer. IPv4 addresses
// occupy the low 32 bits of lo (their IPv4-in-IPv6 mapped form puts 0xffff
// just above, which the 32-bit width masks out of every calculation).
type uint128 struct {
	hi uint64
	lo uint64
}

func addrValue(addr netip.Addr) uint128 {
	raw := addr.As16()
	return uint128{
		hi: binary.BigEndian.Uint64(raw[0:8]),
		lo: binary.BigEndian.Uint64(raw[8:16]),
	}
}

// sub returns v - other. The caller guarantees v >= other.
func (v uint128) sub(other uint128) uint128 {
	lo, borrow := bits.Sub64(v.lo, other.lo, 0)
	hi, _ := bits.Sub64(v.hi, other.hi, borrow)
	return uint128{hi: hi, lo: lo}
}

// addOne returns v + 1.
func (v uint128) addOne() uint128 {
	lo, carry := bits.Add64(v.lo, 1, 0)
	hi, _ := bits.Add64(v.hi, 0, carry)
	return uint128{hi: hi, lo: lo}
}

func (v uint128) bitLen() int {
	if v.hi != 0 {
		return 64 + bits.Len64(v.hi)
	}
	return bits.Len64(v.lo)
}

func (v uint128) trailingZeros() int {
	if v.lo != 0 {
		return bits.TrailingZeros64(v.lo)
	}
	if v.hi != 0 {
		return 64 + bits.TrailingZeros64(v.hi)
	}
	return 128
}

// toFloat converts to float64, losing precision above 2^53. Utilization math
// tolerates that.
func (v uint128) toFloat() float64 {
	return math.Ldexp(float64(v.hi), 64) + float64(v.lo)
}

// lastAddr returns the highest address in the prefix. The bit offset shifts
// IPv4 prefixes into the low 32 bits of the 16-byte form.
func lastAddr(p netip.Prefix) netip.Addr {
	raw := p.Addr().As16()
	start := p.Bits()
	if p.Addr().Is4() {
		start += 96
	}
	for b := start; b < 128; b++ {
		raw[b/8] |= 1 << (7 - b%8)
	}
	addr := netip.AddrFrom16(raw)
	if p.Addr().Is4() {
		return addr.Unmap()
	}
	return addr
}

// addrBits returns the address width of the family: 32 or 128.
func addrBits(addr netip.Addr) int {
	return addr.BitLen()
}

// rangeSize returns end - start + 1 as a float. Start must not exceed end.
func rangeSize(start, end netip.Addr) float64 {
	return addrValue(end).sub(addrValue(start)).toFloat() + 1
}

// rangeToPrefixes decomposes the inclusive address range [start, end] into
// the minimal list of maximal CIDR blocks, lowest first.
func rangeToPrefixes(start, end netip.Addr) []netip.Prefix {
	var prefixes []netip.Prefix
	width := addrBits(start)

	for start.Compare(end) <= 0 {
		value := addrValue(start)

		// Longest run of zero host bits the current address allows.
		alignBits := value.trailingZeros()
		if alignBits > width {
			alignBits = width
		}

		// Largest power-of-two block that still fits in the range.
		diff := addrValue(end).sub(value)
		sizeBits := diff.addOne().bitLen() - 1
		if diff.hi == ^uint64(0) && diff.lo == ^uint64(0) {
			sizeBits = 128 // full space, addOne wrapped
		}
		if sizeBits > alignBits {
			sizeBits = alignBits
		}

		block := netip.PrefixFrom(start, width-sizeBits)
		prefixes = append(prefixes, block)

		blockEnd := lastAddr(block)
		if blockEnd.Compare(end) >= 0 {
			break
		}
		start = blockEnd.Next()
	}
	return prefixes
}
