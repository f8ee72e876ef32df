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
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/liqotech/ipamctl/pkg/ipam"
	"github.com/liqotech/ipamctl/pkg/ipam/metrics"
	"github.com/liqotech/ipamctl/pkg/ipamctl/output"
)

// Summary describes the content of the IPAM.
type Summary struct {
	Blocks   int            `json:"blocks"`
	IPv4     int            `json:"ipv4"`
	IPv6     int            `json:"ipv6"`
	Types    map[string]int `json:"types"`
	MaxDepth int            `json:"maxDepth"`
	Roots    []RootSummary  `json:"roots"`
}

// RootSummary describes a root block of the hierarchy.
type RootSummary struct {
	CIDR        string  `json:"cidr"`
	Type        string  `json:"type"`
	Children    int     `json:"children"`
	Descendants int     `json:"descendants"`
	Utilization float64 `json:"utilization"`
}

// ReportOptions configures the report command.
type ReportOptions struct {
	// Threshold is the utilization ratio above which a root block is highlighted.
	Threshold float64
	// MetricsFile, if set, is the path the prometheus metrics are written to.
	MetricsFile string
}

// Report outputs a summary of the blocks and of the utilization of the root blocks.
func (o *Options) Report(ctx context.Context, opts ReportOptions) error {
	instance, err := o.IPAM(ctx)
	if err != nil {
		return err
	}

	report, err := buildSummary(instance)
	if err != nil {
		return err
	}

	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile, instance); err != nil {
			return fmt.Errorf("failed to write the metrics: %w", err)
		}
		o.Printer.Verbosef("Metrics written to %s", opts.MetricsFile)
	}

	return o.print(report, func() (string, error) {
		return o.sprintSummary(report, opts.Threshold)
	})
}

func buildSummary(instance *ipam.IPAM) (*Summary, error) {
	report := &Summary{Types: map[string]int{}, Roots: []RootSummary{}}
	for _, cidr := range instance.AllCIDRs() {
		report.Blocks++
		report.Types[cidr.Type]++
		if cidr.Block.Version() == 4 {
			report.IPv4++
		} else {
			report.IPv6++
		}
	}

	var current *RootSummary
	instance.Walk(func(cidr ipam.CIDR, depth int) bool {
		if depth == 0 {
			report.Roots = append(report.Roots, RootSummary{CIDR: cidr.String(), Type: cidr.Type})
			current = &report.Roots[len(report.Roots)-1]
		} else {
			current.Descendants++
		}
		if depth == 1 {
			current.Children++
		}
		report.MaxDepth = max(report.MaxDepth, depth)
		return true
	})

	for i := range report.Roots {
		ratio, err := instance.Utilization(report.Roots[i].CIDR)
		if err != nil {
			return nil, err
		}
		report.Roots[i].Utilization = ratio
	}
	return report, nil
}

func (o *Options) sprintSummary(report *Summary, threshold float64) (string, error) {
	var sb strings.Builder

	sb.WriteString(o.Printer.Section.Sprint("Summary"))
	o.Printer.BulletListAddItem(fmt.Sprintf("Blocks: %s (IPv4: %d, IPv6: %d)",
		output.DataStyle.Sprint(report.Blocks), report.IPv4, report.IPv6), 0)
	for _, t := range slices.Sorted(maps.Keys(report.Types)) {
		o.Printer.BulletListAddItem(fmt.Sprintf("%s: %d", t, report.Types[t]), 1)
	}
	o.Printer.BulletListAddItem(fmt.Sprintf("Depth: %d", report.MaxDepth), 0)
	list, err := o.Printer.BulletListSprint()
	if err != nil {
		return "", err
	}
	sb.WriteString(list)

	sb.WriteString(o.Printer.Section.Sprint("Root blocks"))
	for i := range report.Roots {
		root := &report.Roots[i]
		mark := output.CheckMark
		if threshold > 0 && root.Utilization >= threshold {
			mark = output.Cross
		}
		o.Printer.BulletListAddItem(fmt.Sprintf("%s %s (%s): %d children, %d descendants, %.2f%% used",
			mark, root.CIDR, root.Type, root.Children, root.Descendants, root.Utilization*100), 0)
	}
	list, err = o.Printer.BulletListSprint()
	if err != nil {
		return "", err
	}
	sb.WriteString(list)
	return sb.String(), nil
}

// Graphviz writes the hierarchy in DOT format.
func (o *Options) Graphviz(ctx context.Context, w io.Writer) error {
	instance, err := o.IPAM(ctx)
	if err != nil {
		return err
	}
	return instance.Graphviz(w)
}
