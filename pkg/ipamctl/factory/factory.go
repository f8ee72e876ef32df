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

package factory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/liqotech/ipamctl/pkg/ipam"
	"github.com/liqotech/ipamctl/pkg/ipamctl/output"
	"github.com/liqotech/ipamctl/pkg/provider"
	"github.com/liqotech/ipamctl/pkg/provider/aws"
	"github.com/liqotech/ipamctl/pkg/provider/azure"
	"github.com/liqotech/ipamctl/pkg/provider/gcp"
	"github.com/liqotech/ipamctl/pkg/provider/static"
	"github.com/liqotech/ipamctl/pkg/utils/args"
)

// FlagOutput -> the name of the output format flag.
const FlagOutput = "output"

// ErrNoSources is returned when no source of address blocks has been configured.
var ErrNoSources = errors.New("no source of address blocks configured")

// Factory builds the IPAM from the configured sources, and provides the printer
// used to output the results. Factory will ensure that its fields are populated
// during command execution.
type Factory struct {
	ipam.Options

	// Printer is the object used to output messages in the appropriate format.
	Printer *output.Printer
	// Format is the output format that the user has requested with the "--output" / "-o" flag.
	Format *args.StringEnum

	verbose bool
	// providers, if set, replaces the sources built from the options.
	providers []provider.Provider
	ipam      *ipam.IPAM
}

// New returns a new Factory.
func New() *Factory {
	return &Factory{
		Format: args.NewEnum(output.Formats, string(output.Pretty)),
	}
}

// NewForProviders returns a Factory loading the blocks from the given providers, writing to the given printer.
func NewForProviders(printer *output.Printer, providers ...provider.Provider) *Factory {
	f := New()
	f.Printer = printer
	f.providers = providers
	return f
}

// AddFlags registers the flags configuring the sources and the output.
func (f *Factory) AddFlags(flags *pflag.FlagSet) {
	ipam.InitFlags(flags, &f.Options)
	flags.VarP(f.Format, FlagOutput, "o", fmt.Sprintf("Output format (%s)", strings.Join(output.Formats, ", ")))
	flags.BoolVar(&f.verbose, "verbose", false, "Enable verbose logs (default false)")
}

// Initialize populates the object based on the provided flags.
func (f *Factory) Initialize() {
	if f.Printer == nil {
		f.Printer = output.NewPrinter(f.verbose)
	}
}

// OutputFormat returns the requested output format.
func (f *Factory) OutputFormat() output.Format {
	return output.Format(f.Format.Value)
}

// Providers returns the providers matching the configured sources.
func (f *Factory) Providers(ctx context.Context) ([]provider.Provider, error) {
	if f.providers != nil {
		return f.providers, nil
	}

	var providers []provider.Provider
	for _, path := range f.Sources.StringList {
		providers = append(providers, static.New(path))
	}

	if f.AWSRegion != "" {
		p, err := aws.New(f.AWSRegion)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if f.AzureSubscriptionID != "" {
		p, err := azure.New(f.AzureSubscriptionID)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if f.GCPProject != "" {
		p, err := gcp.New(ctx, f.GCPProject, f.GCPCredentialsPath)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		return nil, ErrNoSources
	}
	return providers, nil
}

// IPAM returns the IPAM holding the blocks of all the sources, loading it if necessary.
// Unless fail fast is requested, the failures of the single sources are reported as warnings.
func (f *Factory) IPAM(ctx context.Context) (*ipam.IPAM, error) {
	if f.ipam != nil {
		return f.ipam, nil
	}

	providers, err := f.Providers(ctx)
	if err != nil {
		return nil, err
	}

	done := f.Printer.Spin(fmt.Sprintf("Loading address blocks from %d sources", len(providers)))
	instance := ipam.New(f.IPAMOptions()...)
	if err := instance.Load(ctx, providers...); err != nil {
		if f.FailFast {
			done("", err)
			return nil, err
		}
		f.warn(err)
	}

	report := instance.BuildHierarchy()
	f.warn(report.Err())
	done(fmt.Sprintf("Loaded %d address blocks (%d roots)", report.Inserted, len(instance.Roots())), nil)

	f.ipam = instance
	return instance, nil
}

func (f *Factory) warn(err error) {
	if err == nil {
		return
	}
	var agg utilerrors.Aggregate
	if !errors.As(err, &agg) {
		f.Printer.Warning.Println(output.PrettyErr(err))
		return
	}
	for _, e := range agg.Errors() {
		f.Printer.Warning.Println(output.PrettyErr(e))
	}
}
