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

// Package aws loads the CIDR blocks of the AWS VPCs.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	klog "k8s.io/klog/v2"

	"github.com/liqotech/ipamctl/pkg/provider"
)

const (
	// TagVpcID is the tag holding the ID of the VPC a block belongs to.
	TagVpcID = "vpc-id"
	// TagRegion is the tag holding the region of the VPC.
	TagRegion = "region"

	associatedState = "associated"
)

// Provider lists the VPCs of a region.
type Provider struct {
	region string
	client ec2iface.EC2API
}

var _ provider.Provider = &Provider{}

// New returns a provider for the given region, with credentials taken from the environment.
func New(region string) (*Provider, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to create AWS session: %w", err)
	}
	return NewWithClient(region, ec2.New(sess)), nil
}

// NewWithClient returns a provider using the given EC2 client.
func NewWithClient(region string, client ec2iface.EC2API) *Provider {
	return &Provider{region: region, client: client}
}

// Name returns the name of the provider.
func (p *Provider) Name() string {
	return "aws:" + p.region
}

// Load returns the IPv4 and IPv6 blocks associated with the VPCs of the region.
func (p *Provider) Load(ctx context.Context) ([]provider.Record, error) {
	var records []provider.Record
	err := p.client.DescribeVpcsPagesWithContext(ctx, &ec2.DescribeVpcsInput{},
		func(page *ec2.DescribeVpcsOutput, _ bool) bool {
			for _, vpc := range page.Vpcs {
				records = append(records, p.parseVpc(vpc)...)
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("unable to describe the VPCs of region %s, %w", p.region, err)
	}

	klog.V(2).Infof("Found %d VPC blocks in region %s", len(records), p.region)
	return records, nil
}

func (p *Provider) parseVpc(vpc *ec2.Vpc) []provider.Record {
	tags := map[string]string{
		TagVpcID:  aws.StringValue(vpc.VpcId),
		TagRegion: p.region,
	}
	for _, tag := range vpc.Tags {
		tags[aws.StringValue(tag.Key)] = aws.StringValue(tag.Value)
	}

	var cidrs []string
	if vpc.CidrBlock != nil {
		cidrs = append(cidrs, *vpc.CidrBlock)
	}
	for _, assoc := range vpc.CidrBlockAssociationSet {
		if assoc.CidrBlockState != nil && aws.StringValue(assoc.CidrBlockState.State) != associatedState {
			continue
		}
		cidrs = append(cidrs, aws.StringValue(assoc.CidrBlock))
	}
	for _, assoc := range vpc.Ipv6CidrBlockAssociationSet {
		if assoc.Ipv6CidrBlockState != nil && aws.StringValue(assoc.Ipv6CidrBlockState.State) != associatedState {
			continue
		}
		cidrs = append(cidrs, aws.StringValue(assoc.Ipv6CidrBlock))
	}

	seen := make(map[string]struct{}, len(cidrs))
	records := make([]provider.Record, 0, len(cidrs))
	for _, cidr := range cidrs {
		if _, found := seen[cidr]; found || cidr == "" {
			continue
		}
		seen[cidr] = struct{}{}
		records = append(records, provider.Record{
			CIDR: cidr,
			Type: provider.TypeVPC,
			Tags: provider.MergeTags(tags),
		})
	}
	return records
}
