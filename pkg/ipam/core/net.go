// Copyright 2019-2025 The Liqo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ipamcore

import (
	"cmp"
	"encoding/binary"
	"net/netip"

	"lukechampine.com/uint128"
)

// addrToNum converts an address to its numeric value. IPv4 addresses occupy the low 32 bits.
func addrToNum(addr netip.Addr) uint128.Uint128 {
	if addr.Is4() {
		a4 := addr.As4()
		return uint128.From64(uint64(binary.BigEndian.Uint32(a4[:])))
	}
	a16 := addr.As16()
	return uint128.FromBytesBE(a16[:])
}

// numToAddr converts a numeric value back to an address of the given IP version.
func numToAddr(version int, n uint128.Uint128) netip.Addr {
	if version == 4 {
		var a4 [4]byte
		binary.BigEndian.PutUint32(a4[:], uint32(n.Lo))
		return netip.AddrFrom4(a4)
	}
	var a16 [16]byte
	n.PutBytesBE(a16[:])
	return netip.AddrFrom16(a16)
}

// compareByAddress orders blocks by IP version, then network address, then prefix length.
// This is the order used whenever blocks are returned to callers.
func compareByAddress(a, b Block) int {
	if c := cmp.Compare(a.Version(), b.Version()); c != 0 {
		return c
	}
	if c := a.Network().Compare(b.Network()); c != 0 {
		return c
	}
	return cmp.Compare(a.Bits(), b.Bits())
}

// compareBySpecificity orders blocks by prefix length, then IP version, then network address.
// Processing blocks in this order guarantees every possible ancestor of a block is seen first.
func compareBySpecificity(a, b Block) int {
	if c := cmp.Compare(a.Bits(), b.Bits()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Version(), b.Version()); c != 0 {
		return c
	}
	return a.Network().Compare(b.Network())
}

// supernetOf returns the prefix one bit shorter than the block, which covers exactly
// the blocks that strictly contain it. The second value is false for /0 blocks.
func supernetOf(b Block) (netip.Prefix, bool) {
	if b.Bits() == 0 {
		return netip.Prefix{}, false
	}
	super, err := b.Network().Prefix(b.Bits() - 1)
	if err != nil {
		return netip.Prefix{}, false
	}
	return super, true
}

// netipPrefixOfAddr returns the host prefix (/32 or /128) of the given address.
func netipPrefixOfAddr(addr netip.Addr) netip.Prefix {
	return netip.PrefixFrom(addr, addr.BitLen())
}
