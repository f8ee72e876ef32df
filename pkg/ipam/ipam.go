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

package ipam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"math/big"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	klog "k8s.io/klog/v2"

	ipamcore "github.com/liqotech/ipamctl/pkg/ipam/core"
	"github.com/liqotech/ipamctl/pkg/provider"
)

// CIDR is an address block registered in the IPAM, together with its attributes.
type CIDR struct {
	Block  ipamcore.Block    `json:"cidr"`
	Type   string            `json:"type"`
	Tags   map[string]string `json:"tags,omitempty"`
	Source string            `json:"source,omitempty"`
}

// String returns the canonical representation of the block.
func (c CIDR) String() string {
	return c.Block.String()
}

// StatusAvailable is the status tag attached to the blocks returned by FindAvailableCIDR.
const StatusAvailable = "available"

// IPAM keeps track of the registered address blocks and of the hierarchy they form.
// The hierarchy reflects the blocks registered up to the last BuildHierarchy call,
// plus the ones added afterwards through Insert.
type IPAM struct {
	mutex     sync.RWMutex
	records   map[string]*CIDR
	hierarchy *ipamcore.Hierarchy[struct{}]

	loadTimeout time.Duration
	failFast    bool
}

// Option configures an IPAM instance.
type Option func(*IPAM)

// WithLoadTimeout bounds the time each provider can take to return its blocks.
func WithLoadTimeout(timeout time.Duration) Option {
	return func(ipam *IPAM) {
		ipam.loadTimeout = timeout
	}
}

// WithFailFast makes Load abort as soon as a provider fails, instead of collecting all the errors.
func WithFailFast(failFast bool) Option {
	return func(ipam *IPAM) {
		ipam.failFast = failFast
	}
}

// New returns an empty IPAM.
func New(opts ...Option) *IPAM {
	ipam := &IPAM{
		records:   make(map[string]*CIDR),
		hierarchy: ipamcore.NewHierarchy[struct{}](),
	}
	for _, opt := range opts {
		opt(ipam)
	}
	return ipam
}

// AddCIDR registers a block, replacing any record of the same canonical block.
// The hierarchy is not updated until the next BuildHierarchy call.
func (ipam *IPAM) AddCIDR(cidr, cidrType string, tags map[string]string, source string) error {
	block, err := ipamcore.ParseBlock(cidr)
	if err != nil {
		return err
	}

	ipam.mutex.Lock()
	defer ipam.mutex.Unlock()

	ipam.register(block, cidrType, tags, source)
	return nil
}

func (ipam *IPAM) register(block ipamcore.Block, cidrType string, tags map[string]string, source string) {
	if cidrType == "" {
		cidrType = provider.TypeStatic
	}
	key := block.String()
	if _, found := ipam.records[key]; found {
		klog.V(4).Infof("Replacing record of block %q (source %q)", key, source)
	}
	ipam.records[key] = &CIDR{
		Block:  block,
		Type:   cidrType,
		Tags:   provider.MergeTags(tags),
		Source: source,
	}
}

// Load retrieves the blocks of all the given providers concurrently, and registers them.
// Records with a malformed block are skipped. All the failures are returned as an aggregate,
// while the blocks successfully loaded are registered anyway.
func (ipam *IPAM) Load(ctx context.Context, providers ...provider.Provider) error {
	results := make([][]provider.Record, len(providers))
	errs := make([]error, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i := range providers {
		g.Go(func() error {
			pctx := gctx
			if ipam.loadTimeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(gctx, ipam.loadTimeout)
				defer cancel()
			}

			records, err := providers[i].Load(pctx)
			if err != nil {
				errs[i] = fmt.Errorf("provider %q: %w", providers[i].Name(), err)
				if ipam.failFast {
					return errs[i]
				}
				return nil
			}
			klog.V(2).Infof("Provider %q returned %d blocks", providers[i].Name(), len(records))
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ipam.mutex.Lock()
	defer ipam.mutex.Unlock()

	for i := range results {
		for j := range results[i] {
			record := &results[i][j]
			block, err := ipamcore.ParseBlock(record.CIDR)
			if err != nil {
				klog.V(2).Infof("Skipping record %d of provider %q: %v", j, providers[i].Name(), err)
				errs = append(errs, fmt.Errorf("provider %q, record %d: %w", providers[i].Name(), j, err))
				continue
			}
			ipam.register(block, record.Type, record.Tags, providers[i].Name())
		}
	}

	return utilerrors.NewAggregate(errs)
}

// BuildHierarchy rebuilds the hierarchy from all the registered blocks.
func (ipam *IPAM) BuildHierarchy() ipamcore.BuildReport {
	ipam.mutex.Lock()
	defer ipam.mutex.Unlock()

	items := make([]ipamcore.Item[struct{}], 0, len(ipam.records))
	for key := range ipam.records {
		items = append(items, ipamcore.Item[struct{}]{CIDR: key})
	}
	report := ipam.hierarchy.BuildFromList(items)
	klog.Infof("Built hierarchy of %d blocks (%d roots)", ipam.hierarchy.Len(), len(ipam.hierarchy.Roots()))
	return report
}

// Insert registers a block and adds it to the hierarchy right away.
// If the block is already registered, the existing record is kept and false is returned.
func (ipam *IPAM) Insert(cidr, cidrType string, tags map[string]string, source string) (bool, error) {
	block, err := ipamcore.ParseBlock(cidr)
	if err != nil {
		return false, err
	}

	ipam.mutex.Lock()
	defer ipam.mutex.Unlock()

	if _, found := ipam.records[block.String()]; found {
		// The record may have been added after the last build.
		if _, err := ipam.hierarchy.Insert(block.String(), struct{}{}); err != nil {
			return false, err
		}
		return false, nil
	}

	inserted, err := ipam.hierarchy.Insert(block.String(), struct{}{})
	if err != nil {
		return false, err
	}
	ipam.register(block, cidrType, tags, source)
	klog.Infof("Inserted block %q", block)
	return inserted, nil
}

// GetCIDR returns the record of the given block, which is canonicalized first.
func (ipam *IPAM) GetCIDR(key string) (CIDR, bool) {
	block, err := ipamcore.ParseBlock(key)
	if err != nil {
		return CIDR{}, false
	}

	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	return ipam.get(block)
}

func (ipam *IPAM) get(block ipamcore.Block) (CIDR, bool) {
	record, found := ipam.records[block.String()]
	if !found {
		return CIDR{}, false
	}
	return record.copy(), true
}

// AllCIDRs returns all the registered blocks, sorted by address.
func (ipam *IPAM) AllCIDRs() []CIDR {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	cidrs := make([]CIDR, 0, len(ipam.records))
	for _, record := range ipam.records {
		cidrs = append(cidrs, record.copy())
	}
	sortCIDRs(cidrs)
	return cidrs
}

// FindContainingCIDR returns the most specific block of the hierarchy containing the given address.
func (ipam *IPAM) FindContainingCIDR(address string) (CIDR, bool, error) {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	block, found, err := ipam.hierarchy.FindContainingBlock(address)
	if err != nil || !found {
		return CIDR{}, false, err
	}
	cidr, found := ipam.get(block)
	return cidr, found, nil
}

// ChildCIDRs returns the direct children of the given block, sorted by address.
func (ipam *IPAM) ChildCIDRs(key string) ([]CIDR, error) {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	blocks, err := ipam.hierarchy.DirectChildren(key)
	if err != nil {
		return nil, err
	}
	return ipam.recordsOf(blocks), nil
}

// ParentCIDR returns the most specific block strictly containing the given one,
// which does not need to be registered.
func (ipam *IPAM) ParentCIDR(key string) (CIDR, bool, error) {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	block, found, err := ipam.hierarchy.FindImmediateParent(key)
	if err != nil || !found {
		return CIDR{}, false, err
	}
	cidr, found := ipam.get(block)
	return cidr, found, nil
}

// FindAvailableCIDR returns the first sub-block of the given prefix length which is not a
// direct child of the parent block. The returned block is not registered.
func (ipam *IPAM) FindAvailableCIDR(parentKey string, bits int) (CIDR, bool, error) {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	block, found, err := ipam.hierarchy.FindAvailableBlock(parentKey, bits)
	if err != nil || !found {
		return CIDR{}, false, err
	}
	return CIDR{
		Block: block,
		Type:  provider.TypeStatic,
		Tags:  map[string]string{"status": StatusAvailable},
	}, true, nil
}

// FindByTag returns the registered blocks having the given tag set to value, sorted by address.
func (ipam *IPAM) FindByTag(key, value string) []CIDR {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	var cidrs []CIDR
	for _, record := range ipam.records {
		if v, found := record.Tags[key]; found && v == value {
			cidrs = append(cidrs, record.copy())
		}
	}
	sortCIDRs(cidrs)
	return cidrs
}

// Tags returns a copy of the tags of the given block, or an empty map if it is not registered.
func (ipam *IPAM) Tags(key string) map[string]string {
	cidr, found := ipam.GetCIDR(key)
	if !found {
		return map[string]string{}
	}
	return cidr.Tags
}

// SetTag sets a tag of a registered block, overwriting any previous value.
func (ipam *IPAM) SetTag(key, tag, value string) error {
	if tag == "" {
		return errors.New("the tag name must not be empty")
	}

	ipam.mutex.Lock()
	defer ipam.mutex.Unlock()

	record, err := ipam.record(key)
	if err != nil {
		return err
	}
	record.Tags[tag] = value
	return nil
}

// RemoveTag removes a tag from a registered block, returning whether it was present.
func (ipam *IPAM) RemoveTag(key, tag string) (bool, error) {
	ipam.mutex.Lock()
	defer ipam.mutex.Unlock()

	record, err := ipam.record(key)
	if err != nil {
		return false, err
	}
	if _, found := record.Tags[tag]; !found {
		return false, nil
	}
	delete(record.Tags, tag)
	return true, nil
}

// record returns the stored record of the given block. The caller must hold the lock.
func (ipam *IPAM) record(key string) (*CIDR, error) {
	block, err := ipamcore.ParseBlock(key)
	if err != nil {
		return nil, err
	}
	record, found := ipam.records[block.String()]
	if !found {
		return nil, fmt.Errorf("%w: %q", ipamcore.ErrNotFound, block)
	}
	return record, nil
}

// Walk visits the hierarchy in pre-order, with roots and siblings sorted by address.
// Returning false from fn skips the descendants of the current block.
// fn runs under the read lock, and must not call other methods of the IPAM.
func (ipam *IPAM) Walk(fn func(cidr CIDR, depth int) bool) {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	ipam.hierarchy.Walk(ipam.walkFunc(fn))
}

// WalkFrom is like Walk, starting from the given block.
func (ipam *IPAM) WalkFrom(key string, fn func(cidr CIDR, depth int) bool) error {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	return ipam.hierarchy.WalkFrom(key, ipam.walkFunc(fn))
}

func (ipam *IPAM) walkFunc(fn func(cidr CIDR, depth int) bool) ipamcore.WalkFunc[struct{}] {
	return func(block ipamcore.Block, _ struct{}, depth int) bool {
		cidr, found := ipam.get(block)
		if !found {
			cidr = CIDR{Block: block}
		}
		return fn(cidr, depth)
	}
}

// Forest returns the whole hierarchy as nested maps.
func (ipam *IPAM) Forest() ipamcore.Tree {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	return ipam.hierarchy.Forest()
}

// Subtree returns the hierarchy rooted at the given block as nested maps.
func (ipam *IPAM) Subtree(key string) (ipamcore.Tree, error) {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	return ipam.hierarchy.Subtree(key)
}

// Graphviz writes the hierarchy in DOT format.
func (ipam *IPAM) Graphviz(w io.Writer) error {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	return ipam.hierarchy.Graphviz(w)
}

// Roots returns the blocks of the hierarchy without a parent, sorted by address.
func (ipam *IPAM) Roots() []CIDR {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	return ipam.recordsOf(ipam.hierarchy.Roots())
}

// Utilization returns the fraction of the address space of the given block which is
// covered by its direct children.
func (ipam *IPAM) Utilization(key string) (float64, error) {
	ipam.mutex.RLock()
	defer ipam.mutex.RUnlock()

	block, _, found := ipam.hierarchy.Get(key)
	if !found {
		return 0, fmt.Errorf("%w: %q", ipamcore.ErrNotFound, key)
	}
	children, err := ipam.hierarchy.DirectChildren(key)
	if err != nil {
		return 0, err
	}

	// Siblings never overlap, hence their sizes can be summed up.
	used := new(big.Int)
	for i := range children {
		used.Add(used, addressCount(children[i]))
	}
	ratio, _ := new(big.Rat).SetFrac(used, addressCount(block)).Float64()
	return ratio, nil
}

func addressCount(block ipamcore.Block) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(block.BitLen()-block.Bits()))
}

func (ipam *IPAM) recordsOf(blocks []ipamcore.Block) []CIDR {
	cidrs := make([]CIDR, 0, len(blocks))
	for _, block := range blocks {
		if cidr, found := ipam.get(block); found {
			cidrs = append(cidrs, cidr)
		}
	}
	return cidrs
}

func (c *CIDR) copy() CIDR {
	cp := *c
	cp.Tags = maps.Clone(c.Tags)
	if cp.Tags == nil {
		cp.Tags = map[string]string{}
	}
	return cp
}

func sortCIDRs(cidrs []CIDR) {
	slices.SortFunc(cidrs, func(a, b CIDR) int {
		return a.Block.Compare(b.Block)
	})
}
