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

// Package metrics exposes the state of the IPAM as prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/liqotech/ipamctl/pkg/ipam"
)

// Source is the view of the IPAM the metrics are computed from.
type Source interface {
	AllCIDRs() []ipam.CIDR
	Roots() []ipam.CIDR
	Walk(fn func(cidr ipam.CIDR, depth int) bool)
	ChildCIDRs(key string) ([]ipam.CIDR, error)
	Utilization(key string) (float64, error)
}

var (
	// MetricsBlocks is the metric that counts the registered blocks, by IP version and type.
	MetricsBlocks = prometheus.NewDesc(
		"ipamctl_blocks",
		"Number of registered address blocks.",
		[]string{"version", "type"},
		nil,
	)

	// MetricsBlockChildren is the metric that counts the direct children of a block of the hierarchy.
	MetricsBlockChildren = prometheus.NewDesc(
		"ipamctl_block_children",
		"Number of direct children of an address block.",
		[]string{"cidr"},
		nil,
	)

	// MetricsBlockUtilization is the metric that exposes the fraction of a root block covered by its children.
	MetricsBlockUtilization = prometheus.NewDesc(
		"ipamctl_block_utilization_ratio",
		"Fraction of the address space of a root block covered by its direct children.",
		[]string{"cidr"},
		nil,
	)
)

// Collector implements prometheus.Collector over an IPAM.
type Collector struct {
	source Source
}

var _ prometheus.Collector = &Collector{}

// NewCollector returns a collector for the given source.
func NewCollector(source Source) *Collector {
	return &Collector{source: source}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- MetricsBlocks
	ch <- MetricsBlockChildren
	ch <- MetricsBlockUtilization
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	type key struct {
		version  string
		cidrType string
	}
	counts := map[key]int{}
	for _, cidr := range c.source.AllCIDRs() {
		counts[key{strconv.Itoa(cidr.Block.Version()), cidr.Type}]++
	}
	for k, count := range counts {
		ch <- prometheus.MustNewConstMetric(MetricsBlocks, prometheus.GaugeValue, float64(count), k.version, k.cidrType)
	}

	var linked []string
	c.source.Walk(func(cidr ipam.CIDR, _ int) bool {
		linked = append(linked, cidr.String())
		return true
	})
	for _, cidr := range linked {
		children, err := c.source.ChildCIDRs(cidr)
		if err != nil {
			ch <- prometheus.NewInvalidMetric(MetricsBlockChildren, err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(MetricsBlockChildren, prometheus.GaugeValue, float64(len(children)), cidr)
	}

	for _, root := range c.source.Roots() {
		ratio, err := c.source.Utilization(root.String())
		if err != nil {
			ch <- prometheus.NewInvalidMetric(MetricsBlockUtilization, err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(MetricsBlockUtilization, prometheus.GaugeValue, ratio, root.String())
	}
}

// WriteTextfile writes the metrics of the given source to a file, in the textfile collector format.
func WriteTextfile(path string, source Source) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewCollector(source)); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, registry)
}
