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
	"io"
	"slices"
	"strings"
)

// Tree is a nested representation of a portion of the hierarchy: each block maps to the
// tree of its children. Leaves map to an empty Tree.
type Tree map[string]Tree

// WalkFunc is invoked for each visited block. Returning false skips the descendants of the block.
type WalkFunc[M any] func(block Block, meta M, depth int) bool

// Walk visits the whole forest depth-first, parents before children, with siblings
// sorted by address.
func (h *Hierarchy[M]) Walk(fn WalkFunc[M]) {
	for _, key := range h.sortedKeys(h.roots) {
		h.walk(key, 0, fn)
	}
}

// WalkFrom visits the subtree rooted at the given block, which has depth 0.
func (h *Hierarchy[M]) WalkFrom(key string, fn WalkFunc[M]) error {
	n, err := h.lookup(key)
	if err != nil {
		return err
	}
	h.walk(n.block.String(), 0, fn)
	return nil
}

func (h *Hierarchy[M]) walk(key string, depth int, fn WalkFunc[M]) {
	n := h.nodes[key]
	if !fn(n.block, n.meta, depth) {
		return
	}
	for _, child := range h.sortedKeys(n.children) {
		h.walk(child, depth+1, fn)
	}
}

// Forest returns the nested representation of the whole hierarchy.
func (h *Hierarchy[M]) Forest() Tree {
	tree := make(Tree, len(h.roots))
	for _, key := range h.roots {
		tree[key] = h.subtree(key)
	}
	return tree
}

// Subtree returns the nested representation of the given block and its descendants.
func (h *Hierarchy[M]) Subtree(key string) (Tree, error) {
	n, err := h.lookup(key)
	if err != nil {
		return nil, err
	}
	canonical := n.block.String()
	return Tree{canonical: h.subtree(canonical)}, nil
}

func (h *Hierarchy[M]) subtree(key string) Tree {
	children := h.nodes[key].children
	tree := make(Tree, len(children))
	for _, child := range children {
		tree[child] = h.subtree(child)
	}
	return tree
}

// Graphviz writes the DOT representation of the hierarchy. Root blocks are highlighted.
func (h *Hierarchy[M]) Graphviz(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	for _, key := range h.sortedKeys(h.roots) {
		fmt.Fprintf(&sb, "  %q [style=filled, color=\"#57cc99\"];\n", key)
		h.graphvizRecursive(&sb, key)
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func (h *Hierarchy[M]) graphvizRecursive(sb *strings.Builder, key string) {
	for _, child := range h.sortedKeys(h.nodes[key].children) {
		fmt.Fprintf(sb, "  %q -> %q;\n", key, child)
		h.graphvizRecursive(sb, child)
	}
}

// sortedKeys returns a copy of the given keys, sorted by the address of the referenced blocks.
func (h *Hierarchy[M]) sortedKeys(keys []string) []string {
	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, func(a, b string) int {
		return compareByAddress(h.nodes[a].block, h.nodes[b].block)
	})
	return sorted
}
