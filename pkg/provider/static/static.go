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

// Package static loads address blocks from local JSON or YAML files.
package static

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	klog "k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	"github.com/liqotech/ipamctl/pkg/provider"
)

// Document is the content of a static file.
//
//	cidrs:
//	  - cidr: 10.0.0.0/8
//	    type: STATIC
//	    tags:
//	      env: prod
type Document struct {
	CIDRs []provider.Record `json:"cidrs"`
}

// Provider reads the address blocks from a file.
type Provider struct {
	path string
}

var _ provider.Provider = &Provider{}

// New returns a provider reading the given file.
func New(path string) *Provider {
	return &Provider{path: path}
}

// Name returns the name of the file the blocks are read from.
func (p *Provider) Name() string {
	return "static:" + filepath.Base(p.path)
}

// Load reads and parses the file. Records without a type are assigned the STATIC one.
func (p *Provider) Load(_ context.Context) ([]provider.Record, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %q", p.path)
	}

	records, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse file %q", p.path)
	}
	klog.V(2).Infof("Read %d blocks from %q", len(records), p.path)
	return records, nil
}

// Parse decodes a JSON or YAML document.
func Parse(data []byte) ([]provider.Record, error) {
	var doc Document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, err
	}

	for i := range doc.CIDRs {
		if doc.CIDRs[i].CIDR == "" {
			return nil, errors.Errorf("record %d has no cidr", i)
		}
		if doc.CIDRs[i].Type == "" {
			doc.CIDRs[i].Type = provider.TypeStatic
		}
	}
	return doc.CIDRs, nil
}
