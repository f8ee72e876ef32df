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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liqotech/ipamctl/pkg/ipamctl/factory"
	"github.com/liqotech/ipamctl/pkg/ipamctl/query"
	"github.com/liqotech/ipamctl/pkg/utils/args"
)

const reportLongHelp = `Summarize the registered address blocks.

The report counts the blocks per IP version and per type, and shows how much
of each root block is allocated to its children. Root blocks whose utilization
reaches '--threshold' percent are highlighted. Optionally, the same figures
are written as prometheus metrics to a file, ready to be collected by the
node exporter textfile collector.

Examples:
  $ {{ .Executable }} report
  $ {{ .Executable }} report --threshold 90 -o json
  $ {{ .Executable }} report --metrics-file /var/lib/node-exporter/ipamctl.prom
`

func newReportCommand(ctx context.Context, f *factory.Factory) *cobra.Command {
	options := query.NewOptions(f)
	threshold := args.Percentage{Val: 80}
	var metricsFile string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the registered address blocks",
		Long:  WithTemplate(reportLongHelp),
		Args:  cobra.NoArgs,

		Run: func(_ *cobra.Command, _ []string) {
			f.Printer.CheckErr(options.Report(ctx, query.ReportOptions{
				Threshold:   threshold.Ratio(),
				MetricsFile: metricsFile,
			}))
		},
	}

	cmd.Flags().Var(&threshold, "threshold", "Utilization percentage above which a root block is highlighted")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Path of the file the prometheus metrics are written to")
	return cmd
}

func newGraphvizCommand(ctx context.Context, f *factory.Factory) *cobra.Command {
	options := query.NewOptions(f)
	var file string

	cmd := &cobra.Command{
		Use:   "graphviz",
		Short: "Export the hierarchy in DOT format",
		Long: WithTemplate(`Export the hierarchy of the address blocks in the DOT format of Graphviz.

Examples:
  $ {{ .Executable }} graphviz | dot -Tsvg > blocks.svg
  $ {{ .Executable }} graphviz --file blocks.dot
`),
		Args: cobra.NoArgs,

		Run: func(_ *cobra.Command, _ []string) {
			if file == "" {
				f.Printer.CheckErr(options.Graphviz(ctx, os.Stdout))
				return
			}

			out, err := os.Create(file)
			if err != nil {
				f.Printer.CheckErr(fmt.Errorf("failed to create %q: %w", file, err))
			}
			defer out.Close()
			f.Printer.CheckErr(options.Graphviz(ctx, out))
			f.Printer.Success.Printfln("Hierarchy written to %q", file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path of the output file (default stdout)")
	return cmd
}
