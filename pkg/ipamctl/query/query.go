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

// Package query implements the ipamctl commands inspecting the hierarchy of address blocks.
package query

import (
	"github.com/liqotech/ipamctl/pkg/ipam"
	"github.com/liqotech/ipamctl/pkg/ipamctl/factory"
	"github.com/liqotech/ipamctl/pkg/ipamctl/output"
)

// Options encapsulates the arguments shared by the query commands.
type Options struct {
	*factory.Factory
}

// NewOptions returns a new Options struct.
func NewOptions(f *factory.Factory) *Options {
	return &Options{Factory: f}
}

// print outputs the data in the machine readable format requested by the user, or through
// the pretty function otherwise.
func (o *Options) print(data interface{}, pretty func() (string, error)) error {
	var text string
	var err error
	switch format := o.OutputFormat(); format {
	case output.Pretty:
		text, err = pretty()
	default:
		text, err = output.Marshal(format, data)
	}
	if err != nil {
		return err
	}
	o.Printer.Println(text)
	return nil
}

// printCIDRs outputs a list of blocks.
func (o *Options) printCIDRs(cidrs []ipam.CIDR) error {
	if cidrs == nil {
		cidrs = []ipam.CIDR{}
	}
	return o.print(cidrs, func() (string, error) {
		return o.Printer.SprintCIDRs(cidrs)
	})
}

// printCIDR outputs a single block, or null in machine readable formats when missing.
func (o *Options) printCIDR(cidr ipam.CIDR, found bool, missing string) error {
	if !found {
		if o.OutputFormat() == output.Pretty {
			o.Printer.Info.Println(missing)
			return nil
		}
		return o.print(nil, nil)
	}
	return o.print(cidr, func() (string, error) {
		return o.Printer.SprintCIDRs([]ipam.CIDR{cidr})
	})
}
