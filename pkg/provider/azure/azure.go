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

// Package azure loads the address spaces of the Azure virtual networks.
package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
	klog "k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/liqotech/ipamctl/pkg/provider"
)

const (
	// TagVNet is the tag holding the name of the virtual network a block belongs to.
	TagVNet = "vnet"
	// TagLocation is the tag holding the location of the virtual network.
	TagLocation = "location"
	// TagResourceGroup is the tag holding the resource group of the virtual network.
	TagResourceGroup = "resource-group"
)

// VirtualNetworkLister lists the virtual networks of a subscription.
type VirtualNetworkLister interface {
	ListAll(ctx context.Context) ([]*armnetwork.VirtualNetwork, error)
}

type pagerLister struct {
	client *armnetwork.VirtualNetworksClient
}

func (l *pagerLister) ListAll(ctx context.Context) ([]*armnetwork.VirtualNetwork, error) {
	var vnets []*armnetwork.VirtualNetwork
	pager := l.client.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		vnets = append(vnets, page.Value...)
	}
	return vnets, nil
}

// Provider lists the virtual networks of a subscription.
type Provider struct {
	subscriptionID string
	lister         VirtualNetworkLister
}

var _ provider.Provider = &Provider{}

// New returns a provider for the given subscription, authenticating with the default Azure credential chain.
func New(subscriptionID string) (*Provider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("unable to get the Azure credentials: %w", err)
	}
	client, err := armnetwork.NewVirtualNetworksClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create the virtual networks client: %w", err)
	}
	return NewWithLister(subscriptionID, &pagerLister{client: client}), nil
}

// NewWithLister returns a provider using the given lister.
func NewWithLister(subscriptionID string, lister VirtualNetworkLister) *Provider {
	return &Provider{subscriptionID: subscriptionID, lister: lister}
}

// Name returns the name of the provider.
func (p *Provider) Name() string {
	return "azure:" + p.subscriptionID
}

// Load returns the address prefixes of the virtual networks of the subscription.
func (p *Provider) Load(ctx context.Context) ([]provider.Record, error) {
	vnets, err := p.lister.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list the virtual networks of subscription %s: %w", p.subscriptionID, err)
	}

	var records []provider.Record
	for _, vnet := range vnets {
		records = append(records, parseVirtualNetwork(vnet)...)
	}
	klog.V(2).Infof("Found %d virtual network blocks in subscription %s", len(records), p.subscriptionID)
	return records, nil
}

func parseVirtualNetwork(vnet *armnetwork.VirtualNetwork) []provider.Record {
	if vnet == nil || vnet.Properties == nil || vnet.Properties.AddressSpace == nil {
		return nil
	}

	tags := map[string]string{
		TagVNet:     ptr.Deref(vnet.Name, ""),
		TagLocation: ptr.Deref(vnet.Location, ""),
	}
	if rg := resourceGroupOf(ptr.Deref(vnet.ID, "")); rg != "" {
		tags[TagResourceGroup] = rg
	}
	for k, v := range vnet.Tags {
		tags[k] = ptr.Deref(v, "")
	}

	var records []provider.Record
	for _, prefix := range vnet.Properties.AddressSpace.AddressPrefixes {
		if prefix == nil || *prefix == "" {
			continue
		}
		records = append(records, provider.Record{
			CIDR: *prefix,
			Type: provider.TypeVNet,
			Tags: provider.MergeTags(tags),
		})
	}
	return records
}

// resourceGroupOf extracts the resource group from a resource ID in the form
// /subscriptions/<id>/resourceGroups/<name>/providers/...
func resourceGroupOf(id string) string {
	parts := strings.Split(id, "/")
	for i := 0; i < len(parts)-1; i++ {
		if strings.EqualFold(parts[i], "resourceGroups") {
			return parts[i+1]
		}
	}
	return ""
}
