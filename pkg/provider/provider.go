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

// Package provider defines the sources the address blocks are loaded from.
package provider

import "context"

// Record is an address block as returned by a provider, before any validation.
type Record struct {
	CIDR string            `json:"cidr"`
	Type string            `json:"type,omitempty"`
	Tags map[string]string `json:"tags,omitempty"`
}

// Provider loads address blocks from an external source.
type Provider interface {
	// Name identifies the provider, and is recorded as the source of each loaded block.
	Name() string
	// Load returns the address blocks currently known by the provider.
	Load(ctx context.Context) ([]Record, error)
}

// Block types assigned by the built-in providers.
const (
	TypeStatic = "STATIC"
	TypeVPC    = "VPC"
	TypeVNet   = "VNET"
	TypeSubnet = "SUBNET"
)

// MergeTags returns a new map with the content of all the given maps, later ones winning.
func MergeTags(tags ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, t := range tags {
		for k, v := range t {
			merged[k] = v
		}
	}
	return merged
}
