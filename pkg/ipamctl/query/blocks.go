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

package query

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/liqotech/ipamctl/pkg/ipam"
	ipamcore "github.com/liqotech/ipamctl/pkg/ipam/core"
	"github.com/liqotech/ipamctl/pkg/ipamctl/output"
)

// Tree outputs the whole hierarchy, or the one rooted at the given block if not empty.
func (o *Options) Tree(ctx context.Context, root string, maxDepth int) error {
	instance, err := o.IPAM(ctx)
	if err != nil {
		return err
	}

	var tree ipamcore.Tree
	if root == "" {
		tree = instance.Forest()
	} else if tree, err = instance.Subtree(root); err != nil {
		return err
	}

	return o.print(tree, func() (string, error) {
		return o.Printer.SprintTree(tree, maxDepth, output.BlockLabel(instance))
	})
}

// Children outputs the direct children of a block.
func (o *Options) Children(ctx context.Context, cidr string) error {
	instance, err := o.IPAM(ctx)
	if err != nil {
		return err
	}

	children, err := instance.ChildCIDRs(cidr)
	if err != nil {
		return err
	}
	return o.printCIDRs(children)
}

// Parent outputs the most specific block strictly containing the given one.
func (o *Options) Parent(ctx context.Context, cidr string) error {
	instance, err := o.IPAM(ctx)
	if err != nil {
		return err
	}

	parent, found, err := instance.ParentCIDR(cidr)
	if err != nil {
		return err
	}
	return o.printCIDR(parent, found, fmt.Sprintf("Block %s has no parent", cidr))
}

// Lookup outputs the most specific block containing the given address.
func (o *Options) Lookup(ctx context.Context, address string) error {
	instance, err := o.IPAM(ctx)
	if err != nil {
		return err
	}

	cidr, found, err := instance.FindContainingCIDR(address)
	if err != nil {
		return err
	}
	return o.printCIDR(cidr, found, fmt.Sprintf("No block contains address %s", address))
}

// Available outputs the first sub-block of the given prefix length which is not yet allocated
// within the parent block.
func (o *Options) Available(ctx context.Context, parent string, bits int) error {
	instance, err := o.IPAM(ctx)
	if err != nil {
		return err
	}

	cidr, found, err := instance.FindAvailableCIDR(parent, bits)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no /%d block available in %s", bits, parent)
	}
	return o.printCIDR(cidr, true, "")
}

// Tags outputs the tags of a block.
func (o *Options) Tags(ctx context.Context, cidr string) error {
	instance, err := o.IPAM(ctx)
	if err != nil {
		return err
	}

	if _, found := instance.GetCIDR(cidr); !found {
		return fmt.Errorf("%w: %q", ipamcore.ErrNotFound, cidr)
	}
	tags := instance.Tags(cidr)
	return o.print(tags, func() (string, error) {
		for _, k := range slices.Sorted(maps.Keys(tags)) {
			o.Printer.BulletListAddItem(fmt.Sprintf("%s: %s", k, output.DataStyle.Sprint(tags[k])), 0)
		}
		return o.Printer.BulletListSprint()
	})
}

// Find outputs the blocks having all the given tags.
func (o *Options) Find(ctx context.Context, tags map[string]string) error {
	if len(tags) == 0 {
		return fmt.Errorf("at least one tag is required")
	}

	instance, err := o.IPAM(ctx)
	if err != nil {
		return err
	}

	var matches []ipam.CIDR
	for i, k := range slices.Sorted(maps.Keys(tags)) {
		found := instance.FindByTag(k, tags[k])
		if i == 0 {
			matches = found
			continue
		}
		matches = slices.DeleteFunc(matches, func(c ipam.CIDR) bool {
			return !slices.ContainsFunc(found, func(f ipam.CIDR) bool { return f.Block == c.Block })
		})
	}
	return o.printCIDRs(matches)
}
