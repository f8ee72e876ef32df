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

// Package gcp loads the ranges of the GCP subnetworks.
package gcp

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
	klog "k8s.io/klog/v2"

	"github.com/liqotech/ipamctl/pkg/provider"
)

const (
	// TagNetwork is the tag holding the name of the VPC network a block belongs to.
	TagNetwork = "network"
	// TagRegion is the tag holding the region of the subnetwork.
	TagRegion = "region"
	// TagSubnetwork is the tag holding the name of the subnetwork.
	TagSubnetwork = "name"
	// TagSecondaryRange is the tag holding the name of a secondary range.
	TagSecondaryRange = "secondary-range"
)

// SubnetworkLister lists the subnetworks of a project, across all regions.
type SubnetworkLister interface {
	ListSubnetworks(ctx context.Context) ([]*compute.Subnetwork, error)
}

type aggregatedLister struct {
	svc     *compute.Service
	project string
}

func (l *aggregatedLister) ListSubnetworks(ctx context.Context) ([]*compute.Subnetwork, error) {
	var subnets []*compute.Subnetwork
	err := l.svc.Subnetworks.AggregatedList(l.project).Pages(ctx, func(page *compute.SubnetworkAggregatedList) error {
		for _, scope := range slices.Sorted(maps.Keys(page.Items)) {
			subnets = append(subnets, page.Items[scope].Subnetworks...)
		}
		return nil
	})
	return subnets, err
}

// Provider lists the subnetworks of a project.
type Provider struct {
	project string
	lister  SubnetworkLister
}

var _ provider.Provider = &Provider{}

// New returns a provider for the given project. If credentialsPath is empty,
// the application default credentials are used.
func New(ctx context.Context, project, credentialsPath string) (*Provider, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	svc, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create the compute service: %w", err)
	}
	return NewWithLister(project, &aggregatedLister{svc: svc, project: project}), nil
}

// NewWithLister returns a provider using the given lister.
func NewWithLister(project string, lister SubnetworkLister) *Provider {
	return &Provider{project: project, lister: lister}
}

// Name returns the name of the provider.
func (p *Provider) Name() string {
	return "gcp:" + p.project
}

// Load returns the primary, IPv6 and secondary ranges of the subnetworks of the project.
func (p *Provider) Load(ctx context.Context) ([]provider.Record, error) {
	subnets, err := p.lister.ListSubnetworks(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list the subnetworks of project %s: %w", p.project, err)
	}

	var records []provider.Record
	for _, subnet := range subnets {
		records = append(records, parseSubnetwork(subnet)...)
	}
	klog.V(2).Infof("Found %d subnetwork blocks in project %s", len(records), p.project)
	return records, nil
}

func parseSubnetwork(subnet *compute.Subnetwork) []provider.Record {
	if subnet == nil {
		return nil
	}

	tags := map[string]string{
		TagNetwork:    lastSegment(subnet.Network),
		TagRegion:     lastSegment(subnet.Region),
		TagSubnetwork: subnet.Name,
	}
	record := func(cidr string, extra map[string]string) provider.Record {
		return provider.Record{CIDR: cidr, Type: provider.TypeSubnet, Tags: provider.MergeTags(tags, extra)}
	}

	var records []provider.Record
	for _, cidr := range []string{subnet.IpCidrRange, subnet.Ipv6CidrRange} {
		if cidr != "" {
			records = append(records, record(cidr, nil))
		}
	}
	for _, secondary := range subnet.SecondaryIpRanges {
		if secondary != nil && secondary.IpCidrRange != "" {
			records = append(records, record(secondary.IpCidrRange, map[string]string{TagSecondaryRange: secondary.RangeName}))
		}
	}
	return records
}

// lastSegment returns the resource name at the end of a resource URL.
func lastSegment(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}
