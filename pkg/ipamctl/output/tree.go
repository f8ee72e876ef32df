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

package output

import (
	"slices"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	ipamcore "github.com/liqotech/ipamctl/pkg/ipam/core"
)

const (
	// DefaultMaxDepth is the depth after which the tree rendering is truncated.
	DefaultMaxDepth = 10
	// MaxDepthMarker replaces the blocks beyond the maximum depth.
	MaxDepthMarker = "... (max depth reached)"
)

// Labeler returns the text displayed for a block of the tree.
type Labeler func(cidr string) string

// LeveledList flattens a tree into a list of items, with siblings sorted by address.
// The blocks deeper than maxDepth are replaced by a MaxDepthMarker item.
func LeveledList(tree ipamcore.Tree, maxDepth int, label Labeler) pterm.LeveledList {
	if label == nil {
		label = func(cidr string) string { return cidr }
	}
	var list pterm.LeveledList
	appendLevel(&list, tree, 0, maxDepth, label)
	return list
}

func appendLevel(list *pterm.LeveledList, tree ipamcore.Tree, depth, maxDepth int, label Labeler) {
	for _, cidr := range sortedCIDRs(tree) {
		if depth > maxDepth {
			*list = append(*list, pterm.LeveledListItem{Level: depth, Text: MaxDepthMarker})
			continue
		}
		*list = append(*list, pterm.LeveledListItem{Level: depth, Text: label(cidr)})
		appendLevel(list, tree[cidr], depth+1, maxDepth, label)
	}
}

// SprintTree renders a tree of blocks.
func (p *Printer) SprintTree(tree ipamcore.Tree, maxDepth int, label Labeler) (string, error) {
	list := LeveledList(tree, maxDepth, label)
	if len(list) == 0 {
		return "", nil
	}
	return p.Tree.WithRoot(putils.TreeFromLeveledList(list)).Srender()
}

// sortedCIDRs returns the keys of a tree level, sorted by address.
func sortedCIDRs(tree ipamcore.Tree) []string {
	cidrs := make([]string, 0, len(tree))
	for cidr := range tree {
		cidrs = append(cidrs, cidr)
	}
	slices.SortFunc(cidrs, func(a, b string) int {
		return ipamcore.MustParseBlock(a).Compare(ipamcore.MustParseBlock(b))
	})
	return cidrs
}
