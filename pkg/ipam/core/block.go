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
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
	"lukechampine.com/uint128"
)

// Block is an immutable CIDR prefix, with the host bits masked off.
// The zero value is not a valid block.
type Block struct {
	prefix netip.Prefix
}

// ParseBlock parses a CIDR string into a Block, zeroing the host bits.
// "10.1.2.3/24" and "10.1.2.0/24" produce the same Block.
func ParseBlock(s string) (Block, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return Block{}, fmt.Errorf("%w: %q: %w", ErrMalformedAddress, s, err)
	}
	return Block{prefix: prefix.Masked()}, nil
}

// MustParseBlock is like ParseBlock but panics on error.
func MustParseBlock(s string) Block {
	b, err := ParseBlock(s)
	if err != nil {
		panic(err)
	}
	return b
}

// BlockFromPrefix returns the Block corresponding to the given prefix.
func BlockFromPrefix(prefix netip.Prefix) (Block, error) {
	if !prefix.IsValid() || prefix.Addr().Zone() != "" {
		return Block{}, fmt.Errorf("%w: invalid prefix %q", ErrMalformedAddress, prefix)
	}
	return Block{prefix: prefix.Masked()}, nil
}

// parseAddr parses a single IP address, rejecting zoned addresses.
func parseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q: %w", ErrMalformedAddress, s, err)
	}
	if addr.Zone() != "" {
		return netip.Addr{}, fmt.Errorf("%w: %q: zoned addresses are not supported", ErrMalformedAddress, s)
	}
	return addr, nil
}

// IsValid reports whether the block was built through a successful parse.
func (b Block) IsValid() bool {
	return b.prefix.IsValid()
}

// Version returns the IP version of the block, 4 or 6 (0 for the zero Block).
func (b Block) Version() int {
	switch {
	case !b.IsValid():
		return 0
	case b.prefix.Addr().Is4():
		return 4
	default:
		return 6
	}
}

// BitLen returns the address width of the block, 32 or 128.
func (b Block) BitLen() int {
	return b.prefix.Addr().BitLen()
}

// Bits returns the prefix length.
func (b Block) Bits() int {
	return b.prefix.Bits()
}

// Prefix returns the canonical netip.Prefix of the block.
func (b Block) Prefix() netip.Prefix {
	return b.prefix
}

// Network returns the first address of the block.
func (b Block) Network() netip.Addr {
	return b.prefix.Addr()
}

// Last returns the last (broadcast) address of the block.
func (b Block) Last() netip.Addr {
	return netipx.PrefixLastIP(b.prefix)
}

// NetworkNum returns the numeric value of the network address.
func (b Block) NetworkNum() uint128.Uint128 {
	return addrToNum(b.Network())
}

// LastNum returns the numeric value of the last address.
func (b Block) LastNum() uint128.Uint128 {
	return addrToNum(b.Last())
}

// String returns the canonical representation of the block, e.g. "10.1.0.0/16".
func (b Block) String() string {
	if !b.IsValid() {
		return ""
	}
	return b.prefix.String()
}

// Equal reports whether the two blocks have same version, network address and prefix length.
func (b Block) Equal(other Block) bool {
	return b == other
}

// Compare orders blocks by IP version, then network address, then prefix length.
func (b Block) Compare(other Block) int {
	return compareByAddress(b, other)
}

// Contains reports whether b strictly contains other: same IP version, the range of other
// lies within the range of b and b is less specific. A block never contains itself.
func (b Block) Contains(other Block) bool {
	if !b.IsValid() || !other.IsValid() || b.Version() != other.Version() {
		return false
	}
	return b.Bits() < other.Bits() &&
		b.Network().Compare(other.Network()) <= 0 &&
		b.Last().Compare(other.Last()) >= 0
}

// ContainsAddr reports whether the given address falls within the block.
// Addresses of a different IP version are never contained.
func (b Block) ContainsAddr(addr netip.Addr) bool {
	return b.IsValid() && b.prefix.Contains(addr)
}

// Size returns the number of addresses covered by the block, saturating at the maximum
// uint128 value for a ::/0 block.
func (b Block) Size() uint128.Uint128 {
	hostBits := b.BitLen() - b.Bits()
	if hostBits >= 128 {
		return uint128.Max
	}
	return uint128.From64(1).Lsh(uint(hostBits))
}

// MarshalText implements encoding.TextMarshaler, using the canonical representation.
func (b Block) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input leaves the zero Block.
func (b *Block) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*b = Block{}
		return nil
	}
	parsed, err := ParseBlock(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
