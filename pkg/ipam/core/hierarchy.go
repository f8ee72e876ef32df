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
	"slices"

	"github.com/gaissmai/bart"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
	"lukechampine.com/uint128"
)

// Item is a block string to be inserted, together with its opaque metadata.
type Item[M any] struct {
	CIDR     string
	Metadata M
}

// BuildReport summarizes the outcome of a bulk build.
type BuildReport struct {
	Inserted   int
	Duplicates int
	Failures   []error
}

// Err returns the aggregate of all the per-item failures, or nil if every item was accepted.
func (r BuildReport) Err() error {
	return utilerrors.NewAggregate(r.Failures)
}

// Hierarchy is a forest of address blocks, where the parent of each block is the most
// specific block of the same IP version strictly containing it.
// The metadata of type M is stored along with each block and never interpreted.
//
// Hierarchy is not safe for concurrent use: mutating calls must be serialized by the caller,
// and must not run concurrently with queries.
type Hierarchy[M any] struct {
	nodes map[string]*node[M]
	roots []string
	// lpm mirrors nodes, mapping each prefix to its canonical key.
	lpm *bart.Table[string]
}

// NewHierarchy returns an empty hierarchy.
func NewHierarchy[M any]() *Hierarchy[M] {
	h := &Hierarchy[M]{}
	h.reset()
	return h
}

func (h *Hierarchy[M]) reset() {
	h.nodes = make(map[string]*node[M])
	h.roots = nil
	h.lpm = new(bart.Table[string])
}

// Len returns the number of blocks in the hierarchy.
func (h *Hierarchy[M]) Len() int {
	return len(h.nodes)
}

// BuildFromList replaces the content of the hierarchy with the given items.
// Malformed items are skipped and reported, duplicates (by canonical block) are ignored,
// keeping the metadata of the first occurrence.
func (h *Hierarchy[M]) BuildFromList(items []Item[M]) BuildReport {
	type entry struct {
		block Block
		meta  M
	}

	h.reset()

	var report BuildReport
	entries := make([]entry, 0, len(items))
	seen := make(map[Block]struct{}, len(items))
	for i := range items {
		block, err := ParseBlock(items[i].CIDR)
		if err != nil {
			klog.Warningf("Skipping item %d: %v", i, err)
			report.Failures = append(report.Failures, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		if _, found := seen[block]; found {
			klog.V(4).Infof("Skipping duplicate block %q (item %d)", block, i)
			report.Duplicates++
			continue
		}
		seen[block] = struct{}{}
		entries = append(entries, entry{block: block, meta: items[i].Metadata})
	}

	// Once sorted, every block that may contain the current one has already been inserted,
	// and no block inserted so far can be contained by the current one.
	slices.SortStableFunc(entries, func(a, b entry) int {
		return compareBySpecificity(a.block, b.block)
	})

	for i := range entries {
		key := entries[i].block.String()
		h.add(key, newNode(entries[i].block, entries[i].meta))
		h.link(h.parentKeyOf(entries[i].block), key)
		report.Inserted++
	}

	klog.V(2).Infof("Hierarchy built: %d blocks inserted, %d duplicates, %d failures",
		report.Inserted, report.Duplicates, len(report.Failures))
	return report
}

// Insert adds a single block to the hierarchy, moving under it every existing block that
// now has it as the most specific container. Inserting an existing block is a no-op and
// returns false, keeping the metadata already stored.
func (h *Hierarchy[M]) Insert(cidr string, meta M) (bool, error) {
	block, err := ParseBlock(cidr)
	if err != nil {
		return false, err
	}

	key := block.String()
	if _, found := h.nodes[key]; found {
		klog.V(4).Infof("Block %q already present", key)
		return false, nil
	}

	parentKey := h.parentKeyOf(block)
	h.add(key, newNode(block, meta))
	h.link(parentKey, key)

	// A node contained by the new block whose parent is more specific than the new block
	// is out of reach here, as that parent is itself contained by the new block.
	// Hence, only the former siblings of the new node may need to be moved.
	for _, sibling := range h.childKeys(parentKey) {
		if block.Contains(h.nodes[sibling].block) {
			klog.V(4).Infof("Moving block %q under %q", sibling, key)
			h.unlink(sibling)
			h.link(key, sibling)
		}
	}

	klog.V(4).Infof("Block %q inserted (parent %q)", key, parentKey)
	return true, nil
}

// FindImmediateParent returns the most specific block of the hierarchy strictly containing
// the given one, which does not need to be part of the hierarchy.
func (h *Hierarchy[M]) FindImmediateParent(cidr string) (Block, bool, error) {
	block, err := ParseBlock(cidr)
	if err != nil {
		return Block{}, false, err
	}
	parentKey := h.parentKeyOf(block)
	if parentKey == "" {
		return Block{}, false, nil
	}
	return h.nodes[parentKey].block, true, nil
}

// DirectChildren returns the immediate children of the given block, sorted by address.
func (h *Hierarchy[M]) DirectChildren(key string) ([]Block, error) {
	n, err := h.lookup(key)
	if err != nil {
		return nil, err
	}
	return h.blocksOf(n.children), nil
}

// FindContainingBlock returns the most specific block containing the given address.
func (h *Hierarchy[M]) FindContainingBlock(address string) (Block, bool, error) {
	addr, err := parseAddr(address)
	if err != nil {
		return Block{}, false, err
	}
	key, found := h.lpm.LookupPrefix(netipPrefixOfAddr(addr))
	if !found {
		return Block{}, false, nil
	}
	return h.nodes[key].block, true, nil
}

// FindAvailableBlock returns the first sub-block of the given prefix length, in increasing
// address order, which is not already a direct child of the parent block.
// Only direct children are considered as allocated: a sub-block overlapping with a
// grand-child, or with a child of a different size, is still reported as available.
// The second value is false if every sub-block is taken.
func (h *Hierarchy[M]) FindAvailableBlock(parentKey string, bits int) (Block, bool, error) {
	parent, err := h.lookup(parentKey)
	if err != nil {
		return Block{}, false, err
	}
	if bits <= parent.block.Bits() || bits > parent.block.BitLen() {
		return Block{}, false, fmt.Errorf("%w: /%d for parent %q", ErrInvalidPrefixRequest, bits, parent.block)
	}

	var taken []uint128.Uint128
	for _, child := range parent.children {
		if cb := h.nodes[child].block; cb.Bits() == bits {
			taken = append(taken, cb.NetworkNum())
		}
	}
	slices.SortFunc(taken, func(a, b uint128.Uint128) int { return a.Cmp(b) })

	step := uint128.From64(1).Lsh(uint(parent.block.BitLen() - bits))
	candidate, last := parent.block.NetworkNum(), parent.block.LastNum()
	for _, t := range taken {
		if t.Cmp(candidate) > 0 {
			break
		}
		if !t.Equals(candidate) {
			continue
		}
		next := candidate.AddWrap(step)
		if next.Cmp(candidate) <= 0 || next.Cmp(last) > 0 {
			return Block{}, false, nil
		}
		candidate = next
	}

	addr := numToAddr(parent.block.Version(), candidate)
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return Block{}, false, err
	}
	return Block{prefix: prefix}, true, nil
}

// Get returns the block and metadata stored under the given key.
func (h *Hierarchy[M]) Get(key string) (Block, M, bool) {
	n, err := h.lookup(key)
	if err != nil {
		var zero M
		return Block{}, zero, false
	}
	return n.block, n.meta, true
}

// Parent returns the parent of a block of the hierarchy. The second value is false for roots.
func (h *Hierarchy[M]) Parent(key string) (Block, bool, error) {
	n, err := h.lookup(key)
	if err != nil {
		return Block{}, false, err
	}
	if n.isRoot() {
		return Block{}, false, nil
	}
	return h.nodes[n.parent].block, true, nil
}

// Roots returns the blocks without a parent, sorted by address.
func (h *Hierarchy[M]) Roots() []Block {
	return h.blocksOf(h.roots)
}

// Blocks returns all the blocks of the hierarchy, sorted by address.
func (h *Hierarchy[M]) Blocks() []Block {
	blocks := make([]Block, 0, len(h.nodes))
	for _, n := range h.nodes {
		blocks = append(blocks, n.block)
	}
	slices.SortFunc(blocks, compareByAddress)
	return blocks
}

// lookup returns the node of the given key, which is canonicalized first.
func (h *Hierarchy[M]) lookup(key string) (*node[M], error) {
	block, err := ParseBlock(key)
	if err != nil {
		return nil, err
	}
	n, found := h.nodes[block.String()]
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, block)
	}
	return n, nil
}

// parentKeyOf returns the key of the most specific block strictly containing the given one,
// or the empty string if there is none.
func (h *Hierarchy[M]) parentKeyOf(block Block) string {
	super, ok := supernetOf(block)
	if !ok {
		return ""
	}
	key, _ := h.lpm.LookupPrefix(super)
	return key
}

func (h *Hierarchy[M]) add(key string, n *node[M]) {
	h.nodes[key] = n
	h.lpm.Insert(n.block.prefix, key)
}

// childKeys returns a copy of the children of the given key, or of the roots for the empty key.
func (h *Hierarchy[M]) childKeys(parentKey string) []string {
	if parentKey == "" {
		return slices.Clone(h.roots)
	}
	return slices.Clone(h.nodes[parentKey].children)
}

// link sets parentKey as the parent of childKey, updating both sides of the edge.
// The empty parentKey makes the child a root.
func (h *Hierarchy[M]) link(parentKey, childKey string) {
	h.nodes[childKey].parent = parentKey
	if parentKey == "" {
		h.roots = append(h.roots, childKey)
		return
	}
	h.nodes[parentKey].addChild(childKey)
}

// unlink detaches childKey from its parent, or from the roots.
func (h *Hierarchy[M]) unlink(childKey string) {
	child := h.nodes[childKey]
	if child.isRoot() {
		h.roots = slices.DeleteFunc(h.roots, func(k string) bool { return k == childKey })
	} else {
		h.nodes[child.parent].removeChild(childKey)
	}
	child.parent = ""
}

func (h *Hierarchy[M]) blocksOf(keys []string) []Block {
	blocks := make([]Block, len(keys))
	for i, k := range keys {
		blocks[i] = h.nodes[k].block
	}
	slices.SortFunc(blocks, compareByAddress)
	return blocks
}
