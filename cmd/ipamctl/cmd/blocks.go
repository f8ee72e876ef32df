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

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/liqotech/ipamctl/pkg/ipamctl/factory"
	"github.com/liqotech/ipamctl/pkg/ipamctl/output"
	"github.com/liqotech/ipamctl/pkg/ipamctl/query"
	"github.com/liqotech/ipamctl/pkg/utils/args"
)

const treeLongHelp = `Show the hierarchy of the address blocks.

Each block is listed below the smallest registered block containing it. When a
block is given, only the subtree rooted at that block is shown. Nodes deeper
than '--max-depth' levels are replaced by a marker.

Examples:
  $ {{ .Executable }} tree
  $ {{ .Executable }} tree 10.0.0.0/8 --max-depth 3
  $ {{ .Executable }} tree -o json
`

func newTreeCommand(ctx context.Context, f *factory.Factory) *cobra.Command {
	options := query.NewOptions(f)
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "tree [CIDR]",
		Short: "Show the hierarchy of the address blocks",
		Long:  WithTemplate(treeLongHelp),
		Args:  cobra.MaximumNArgs(1),

		Run: func(_ *cobra.Command, args []string) {
			var root string
			if len(args) == 1 {
				root = args[0]
			}
			f.Printer.CheckErr(options.Tree(ctx, root, maxDepth))
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", output.DefaultMaxDepth, "Maximum depth of the printed hierarchy")
	return cmd
}

func newChildrenCommand(ctx context.Context, f *factory.Factory) *cobra.Command {
	options := query.NewOptions(f)
	return &cobra.Command{
		Use:   "children CIDR",
		Short: "List the direct children of an address block",
		Long: WithTemplate(`List the blocks immediately below the given one in the hierarchy.

Examples:
  $ {{ .Executable }} children 10.0.0.0/16
`),
		Args: cobra.ExactArgs(1),

		Run: func(_ *cobra.Command, args []string) {
			f.Printer.CheckErr(options.Children(ctx, args[0]))
		},
	}
}

func newParentCommand(ctx context.Context, f *factory.Factory) *cobra.Command {
	options := query.NewOptions(f)
	return &cobra.Command{
		Use:   "parent CIDR",
		Short: "Show the smallest registered block containing a CIDR",
		Long: WithTemplate(`Show the smallest registered block strictly containing the given CIDR.
The CIDR does not need to be registered.

Examples:
  $ {{ .Executable }} parent 10.0.1.0/24
`),
		Args: cobra.ExactArgs(1),

		Run: func(_ *cobra.Command, args []string) {
			f.Printer.CheckErr(options.Parent(ctx, args[0]))
		},
	}
}

func newLookupCommand(ctx context.Context, f *factory.Factory) *cobra.Command {
	options := query.NewOptions(f)
	return &cobra.Command{
		Use:   "lookup ADDRESS",
		Short: "Show the most specific block containing an address",
		Long: WithTemplate(`Show the most specific registered block containing the given address.

Examples:
  $ {{ .Executable }} lookup 10.0.1.17
  $ {{ .Executable }} lookup 2001:db8::1 -o yaml
`),
		Args: cobra.ExactArgs(1),

		Run: func(_ *cobra.Command, args []string) {
			f.Printer.CheckErr(options.Lookup(ctx, args[0]))
		},
	}
}

func newAvailableCommand(ctx context.Context, f *factory.Factory) *cobra.Command {
	options := query.NewOptions(f)
	var prefixLength int

	cmd := &cobra.Command{
		Use:   "available PARENT",
		Short: "Find a free block of the given size within a registered block",
		Long: WithTemplate(`Find the first block of the requested prefix length within the given
registered block, which does not overlap any of its direct children of the
same size. The returned block is not registered.

Examples:
  $ {{ .Executable }} available 10.0.0.0/16 --prefix-length 24
`),
		Args: cobra.ExactArgs(1),

		Run: func(_ *cobra.Command, args []string) {
			f.Printer.CheckErr(options.Available(ctx, args[0], prefixLength))
		},
	}

	cmd.Flags().IntVar(&prefixLength, "prefix-length", 0, "Prefix length of the requested block")
	cobra.CheckErr(cmd.MarkFlagRequired("prefix-length"))
	return cmd
}

func newTagsCommand(ctx context.Context, f *factory.Factory) *cobra.Command {
	options := query.NewOptions(f)
	return &cobra.Command{
		Use:   "tags CIDR",
		Short: "Show the tags of a registered block",
		Args:  cobra.ExactArgs(1),

		Run: func(_ *cobra.Command, args []string) {
			f.Printer.CheckErr(options.Tags(ctx, args[0]))
		},
	}
}

func newFindCommand(ctx context.Context, f *factory.Factory) *cobra.Command {
	options := query.NewOptions(f)
	var tags args.StringMap

	cmd := &cobra.Command{
		Use:   "find",
		Short: "List the blocks matching all the given tags",
		Long: WithTemplate(`List the registered blocks carrying all the given tags.

Examples:
  $ {{ .Executable }} find --tag env=prod
  $ {{ .Executable }} find --tag env=prod,region=eu-west-1
`),
		Args: cobra.NoArgs,

		Run: func(_ *cobra.Command, _ []string) {
			f.Printer.CheckErr(options.Find(ctx, tags.StringMap))
		},
	}

	cmd.Flags().Var(&tags, "tag", "Tags the blocks must carry, in the form key1=value1,key2=value2")
	cobra.CheckErr(cmd.MarkFlagRequired("tag"))
	return cmd
}
