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

package ipamcore

import (
	"bytes"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type label string

func itemsOf(cidrs ...string) []Item[label] {
	items := make([]Item[label], len(cidrs))
	for i := range cidrs {
		items[i] = Item[label]{CIDR: cidrs[i], Metadata: label(cidrs[i])}
	}
	return items
}

func buildHierarchy(cidrs ...string) *Hierarchy[label] {
	h := NewHierarchy[label]()
	report := h.BuildFromList(itemsOf(cidrs...))
	Expect(report.Err()).NotTo(HaveOccurred())
	return h
}

func insertAll(cidrs ...string) *Hierarchy[label] {
	h := NewHierarchy[label]()
	for _, cidr := range cidrs {
		_, err := h.Insert(cidr, label(cidr))
		Expect(err).NotTo(HaveOccurred())
	}
	return h
}

// parents maps every block of the hierarchy to the string of its parent ("" for roots).
func parents(h *Hierarchy[label]) map[string]string {
	result := map[string]string{}
	for _, block := range h.Blocks() {
		parent, found, err := h.Parent(block.String())
		Expect(err).NotTo(HaveOccurred())
		if found {
			result[block.String()] = parent.String()
		} else {
			result[block.String()] = ""
		}
	}
	return result
}

func blockStrings(blocks []Block) []string {
	result := make([]string, len(blocks))
	for i := range blocks {
		result[i] = blocks[i].String()
	}
	return result
}

// expectConsistent checks that every child list matches the parent pointers.
func expectConsistent(h *Hierarchy[label]) {
	p := parents(h)
	for _, block := range h.Blocks() {
		children, err := h.DirectChildren(block.String())
		Expect(err).NotTo(HaveOccurred())
		for _, child := range children {
			Expect(p[child.String()]).To(Equal(block.String()))
		}
	}
	for child, parent := range p {
		if parent == "" {
			Expect(blockStrings(h.Roots())).To(ContainElement(child))
			continue
		}
		children, err := h.DirectChildren(parent)
		Expect(err).NotTo(HaveOccurred())
		Expect(blockStrings(children)).To(ContainElement(child))
	}
}

var _ = Describe("Hierarchy", func() {
	var (
		scenarioBlocks = []string{"10.0.0.0/8", "10.1.0.0/16", "10.1.1.0/24"}
		multiLevel     = []string{
			"10.0.0.0/8", "10.1.0.0/16", "10.1.1.0/24", "10.1.1.128/25", "10.1.1.0/26",
			"10.2.0.0/16", "10.2.1.0/24", "10.2.1.0/28", "192.168.0.0/16", "192.168.1.0/24",
			"2001:db8::/32", "2001:db8:1::/48", "2001:db8:1:1::/64", "0.0.0.0/0",
		}
	)

	Context("building from a list", func() {
		DescribeTable("nested blocks in any order",
			func(order []int) {
				cidrs := make([]string, len(order))
				for i, idx := range order {
					cidrs[i] = scenarioBlocks[idx]
				}
				h := buildHierarchy(cidrs...)

				Expect(blockStrings(h.Roots())).To(Equal([]string{"10.0.0.0/8"}))
				children, err := h.DirectChildren("10.0.0.0/8")
				Expect(err).NotTo(HaveOccurred())
				Expect(blockStrings(children)).To(Equal([]string{"10.1.0.0/16"}))
				children, err = h.DirectChildren("10.1.0.0/16")
				Expect(err).NotTo(HaveOccurred())
				Expect(blockStrings(children)).To(Equal([]string{"10.1.1.0/24"}))
				children, err = h.DirectChildren("10.1.1.0/24")
				Expect(err).NotTo(HaveOccurred())
				Expect(children).To(BeEmpty())
			},
			Entry("most generic first", []int{0, 1, 2}),
			Entry("most specific first", []int{2, 1, 0}),
			Entry("middle first", []int{1, 2, 0}),
			Entry("mixed", []int{2, 0, 1}),
		)

		It("should keep different IP versions apart", func() {
			h := buildHierarchy("10.0.0.0/8", "2001:db8::/32")
			Expect(blockStrings(h.Roots())).To(Equal([]string{"10.0.0.0/8", "2001:db8::/32"}))

			h = buildHierarchy("0.0.0.0/0", "::/0", "10.0.0.0/8", "::ffff:10.0.0.0/104")
			Expect(parents(h)).To(Equal(map[string]string{
				"0.0.0.0/0":           "",
				"::/0":                "",
				"10.0.0.0/8":          "0.0.0.0/0",
				"::ffff:10.0.0.0/104": "::/0",
			}))
		})

		It("should build multi level hierarchies", func() {
			h := buildHierarchy(multiLevel...)
			Expect(parents(h)).To(Equal(map[string]string{
				"0.0.0.0/0":         "",
				"10.0.0.0/8":        "0.0.0.0/0",
				"10.1.0.0/16":       "10.0.0.0/8",
				"10.1.1.0/24":       "10.1.0.0/16",
				"10.1.1.0/26":       "10.1.1.0/24",
				"10.1.1.128/25":     "10.1.1.0/24",
				"10.2.0.0/16":       "10.0.0.0/8",
				"10.2.1.0/24":       "10.2.0.0/16",
				"10.2.1.0/28":       "10.2.1.0/24",
				"192.168.0.0/16":    "0.0.0.0/0",
				"192.168.1.0/24":    "192.168.0.0/16",
				"2001:db8::/32":     "",
				"2001:db8:1::/48":   "2001:db8::/32",
				"2001:db8:1:1::/64": "2001:db8:1::/48",
			}))
			expectConsistent(h)
		})

		It("should produce the same forest for any permutation of the input", func() {
			expected := parents(buildHierarchy(multiLevel...))
			rng := rand.New(rand.NewPCG(1, 2))
			for range 20 {
				shuffled := append([]string(nil), multiLevel...)
				rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
				Expect(parents(buildHierarchy(shuffled...))).To(Equal(expected))
			}
		})

		It("should report malformed items and skip duplicates", func() {
			h := NewHierarchy[label]()
			report := h.BuildFromList([]Item[label]{
				{CIDR: "10.0.0.0/8", Metadata: "first"},
				{CIDR: "not-a-cidr", Metadata: "bogus"},
				{CIDR: "10.0.0.0/8", Metadata: "second"},
				{CIDR: "10.1.2.3/8", Metadata: "third"},
				{CIDR: "10.1.0.0/33", Metadata: "too long"},
				{CIDR: "10.1.0.0/16", Metadata: "child"},
			})

			Expect(report.Inserted).To(Equal(2))
			Expect(report.Duplicates).To(Equal(2))
			Expect(report.Failures).To(HaveLen(2))
			Expect(report.Err()).To(MatchError(ErrMalformedAddress))

			_, meta, found := h.Get("10.0.0.0/8")
			Expect(found).To(BeTrue())
			Expect(meta).To(Equal(label("first")))
			Expect(parents(h)).To(Equal(map[string]string{
				"10.0.0.0/8":  "",
				"10.1.0.0/16": "10.0.0.0/8",
			}))
		})

		It("should return no error for a clean build", func() {
			h := NewHierarchy[label]()
			report := h.BuildFromList(itemsOf("10.0.0.0/8"))
			Expect(report.Err()).NotTo(HaveOccurred())
			Expect(report.Failures).To(BeEmpty())
		})

		It("should expose the failures of a build result used in place", func() {
			h := NewHierarchy[label]()
			Expect(h.BuildFromList(itemsOf("10.0.0.0/8")).Err()).To(Succeed())
			Expect(h.BuildFromList(itemsOf("10.0.0.0/33")).Err()).To(MatchError(ErrMalformedAddress))
		})

		It("should replace the previous content", func() {
			h := buildHierarchy("10.0.0.0/8", "10.1.0.0/16")
			h.BuildFromList(itemsOf("192.168.0.0/16"))
			Expect(h.Len()).To(Equal(1))
			Expect(blockStrings(h.Roots())).To(Equal([]string{"192.168.0.0/16"}))
			_, _, found := h.Get("10.0.0.0/8")
			Expect(found).To(BeFalse())
		})
	})

	Context("inserting incrementally", func() {
		It("should move existing blocks under a new intermediate block", func() {
			h := insertAll("10.0.0.0/8", "10.1.1.0/24")
			Expect(parents(h)["10.1.1.0/24"]).To(Equal("10.0.0.0/8"))

			inserted, err := h.Insert("10.1.0.0/16", "middle")
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeTrue())

			Expect(parents(h)).To(Equal(map[string]string{
				"10.0.0.0/8":  "",
				"10.1.0.0/16": "10.0.0.0/8",
				"10.1.1.0/24": "10.1.0.0/16",
			}))
			children, err := h.DirectChildren("10.0.0.0/8")
			Expect(err).NotTo(HaveOccurred())
			Expect(blockStrings(children)).To(Equal([]string{"10.1.0.0/16"}))
			expectConsistent(h)
		})

		It("should move existing roots under a new root", func() {
			h := insertAll("10.1.0.0/16", "10.2.0.0/16", "192.168.0.0/16", "2001:db8::/32")
			_, err := h.Insert("10.0.0.0/8", "")
			Expect(err).NotTo(HaveOccurred())

			Expect(blockStrings(h.Roots())).To(Equal([]string{"10.0.0.0/8", "192.168.0.0/16", "2001:db8::/32"}))
			children, err := h.DirectChildren("10.0.0.0/8")
			Expect(err).NotTo(HaveOccurred())
			Expect(blockStrings(children)).To(Equal([]string{"10.1.0.0/16", "10.2.0.0/16"}))
			expectConsistent(h)
		})

		It("should only move the blocks whose parent is less specific than the new block", func() {
			h := insertAll("10.0.0.0/8", "10.1.1.0/24", "10.1.2.0/24", "10.2.0.0/16", "10.2.1.0/24", "10.8.0.0/16")

			_, err := h.Insert("10.0.0.0/14", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(parents(h)).To(Equal(map[string]string{
				"10.0.0.0/8":  "",
				"10.0.0.0/14": "10.0.0.0/8",
				"10.1.1.0/24": "10.0.0.0/14",
				"10.1.2.0/24": "10.0.0.0/14",
				"10.2.0.0/16": "10.0.0.0/14",
				"10.2.1.0/24": "10.2.0.0/16",
				"10.8.0.0/16": "10.0.0.0/8",
			}))

			// A block between two linked blocks takes only what is below it.
			_, err = h.Insert("10.1.0.0/16", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(parents(h)).To(Equal(map[string]string{
				"10.0.0.0/8":  "",
				"10.0.0.0/14": "10.0.0.0/8",
				"10.1.0.0/16": "10.0.0.0/14",
				"10.1.1.0/24": "10.1.0.0/16",
				"10.1.2.0/24": "10.1.0.0/16",
				"10.2.0.0/16": "10.0.0.0/14",
				"10.2.1.0/24": "10.2.0.0/16",
				"10.8.0.0/16": "10.0.0.0/8",
			}))
			expectConsistent(h)
		})

		It("should match the bulk build for any insertion order", func() {
			expected := parents(buildHierarchy(multiLevel...))
			rng := rand.New(rand.NewPCG(3, 4))
			for range 20 {
				shuffled := append([]string(nil), multiLevel...)
				rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
				h := insertAll(shuffled...)
				Expect(parents(h)).To(Equal(expected))
				expectConsistent(h)
			}
		})

		It("should be idempotent", func() {
			h := insertAll("10.0.0.0/8", "10.1.0.0/16")
			before := parents(h)

			inserted, err := h.Insert("10.1.0.0/16", "again")
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeFalse())
			inserted, err = h.Insert("10.1.2.3/16", "with host bits")
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeFalse())

			Expect(parents(h)).To(Equal(before))
			Expect(h.Len()).To(Equal(2))
			_, meta, _ := h.Get("10.1.0.0/16")
			Expect(meta).To(Equal(label("10.1.0.0/16")))
		})

		It("should reject malformed blocks without altering the forest", func() {
			h := insertAll("10.0.0.0/8")
			inserted, err := h.Insert("10.0.0.0/40", "")
			Expect(err).To(MatchError(ErrMalformedAddress))
			Expect(inserted).To(BeFalse())
			Expect(h.Len()).To(Equal(1))
		})
	})

	Context("queries", func() {
		var h *Hierarchy[label]

		BeforeEach(func() {
			h = buildHierarchy("10.0.0.0/8", "10.1.0.0/16", "10.1.1.0/24", "2001:db8::/32")
		})

		It("should find the immediate parent of any block", func() {
			parent, found, err := h.FindImmediateParent("10.1.1.128/25")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(parent.String()).To(Equal("10.1.1.0/24"))

			parent, found, err = h.FindImmediateParent("10.1.1.0/24")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(parent.String()).To(Equal("10.1.0.0/16"))

			_, found, err = h.FindImmediateParent("10.0.0.0/8")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())

			_, found, err = h.FindImmediateParent("0.0.0.0/0")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())

			parent, found, err = h.FindImmediateParent("2001:db8:1::/48")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(parent.String()).To(Equal("2001:db8::/32"))

			_, _, err = h.FindImmediateParent("bogus")
			Expect(err).To(MatchError(ErrMalformedAddress))
		})

		It("should return the direct children only", func() {
			children, err := h.DirectChildren("10.0.0.0/8")
			Expect(err).NotTo(HaveOccurred())
			Expect(blockStrings(children)).To(Equal([]string{"10.1.0.0/16"}))

			children, err = h.DirectChildren("10.1.2.3/16")
			Expect(err).NotTo(HaveOccurred())
			Expect(blockStrings(children)).To(Equal([]string{"10.1.1.0/24"}))

			_, err = h.DirectChildren("172.16.0.0/12")
			Expect(err).To(MatchError(ErrNotFound))
			_, err = h.DirectChildren("bogus")
			Expect(err).To(MatchError(ErrMalformedAddress))
		})

		It("should return the parent of stored blocks", func() {
			parent, found, err := h.Parent("10.1.0.0/16")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(parent.String()).To(Equal("10.0.0.0/8"))

			_, found, err = h.Parent("2001:db8::/32")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())

			_, _, err = h.Parent("10.2.0.0/16")
			Expect(err).To(MatchError(ErrNotFound))
		})

		DescribeTable("finding the containing block",
			func(address, expected string) {
				block, found, err := h.FindContainingBlock(address)
				Expect(err).NotTo(HaveOccurred())
				if expected == "" {
					Expect(found).To(BeFalse())
					return
				}
				Expect(found).To(BeTrue())
				Expect(block.String()).To(Equal(expected))
			},
			Entry("most specific block", "10.1.1.5", "10.1.1.0/24"),
			Entry("intermediate block", "10.1.2.5", "10.1.0.0/16"),
			Entry("top level block", "10.200.0.1", "10.0.0.0/8"),
			Entry("network address", "10.0.0.0", "10.0.0.0/8"),
			Entry("IPv6 address", "2001:db8::1", "2001:db8::/32"),
			Entry("not contained", "192.168.1.1", ""),
			Entry("IPv4-mapped address", "::ffff:10.1.1.5", ""),
		)

		It("should reject malformed addresses", func() {
			_, _, err := h.FindContainingBlock("10.1.1")
			Expect(err).To(MatchError(ErrMalformedAddress))
			_, _, err = h.FindContainingBlock("fe80::1%eth0")
			Expect(err).To(MatchError(ErrMalformedAddress))
		})

		It("should list blocks sorted by address", func() {
			Expect(blockStrings(h.Blocks())).To(Equal([]string{"10.0.0.0/8", "10.1.0.0/16", "10.1.1.0/24", "2001:db8::/32"}))
		})
	})

	Context("finding available blocks", func() {
		It("should skip the sub-blocks already allocated as direct children", func() {
			h := buildHierarchy("10.0.0.0/8", "10.0.0.0/24")
			block, found, err := h.FindAvailableBlock("10.0.0.0/8", 24)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(block.String()).To(Equal("10.0.1.0/24"))
		})

		It("should return the first gap", func() {
			h := buildHierarchy("10.0.0.0/16", "10.0.0.0/24", "10.0.1.0/24", "10.0.3.0/24")
			block, found, err := h.FindAvailableBlock("10.0.0.0/16", 24)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(block.String()).To(Equal("10.0.2.0/24"))
		})

		It("should return the first sub-block when there are no children", func() {
			h := buildHierarchy("172.16.0.0/12")
			block, found, err := h.FindAvailableBlock("172.16.0.0/12", 16)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(block.String()).To(Equal("172.16.0.0/16"))
		})

		It("should only consider direct children of the same size", func() {
			h := buildHierarchy("10.0.0.0/8", "10.0.0.0/16", "10.0.0.0/24")
			block, found, err := h.FindAvailableBlock("10.0.0.0/8", 24)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(block.String()).To(Equal("10.0.0.0/24"))

			block, found, err = h.FindAvailableBlock("10.0.0.0/8", 16)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(block.String()).To(Equal("10.1.0.0/16"))
		})

		It("should report exhausted parents", func() {
			h := buildHierarchy("10.0.0.0/30", "10.0.0.0/31", "10.0.0.2/31")
			_, found, err := h.FindAvailableBlock("10.0.0.0/30", 31)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())

			block, found, err := h.FindAvailableBlock("10.0.0.0/30", 32)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(block.String()).To(Equal("10.0.0.0/32"))
		})

		It("should handle the boundaries of the address space", func() {
			h := buildHierarchy("::/0", "::/1", "8000::/1")
			_, found, err := h.FindAvailableBlock("::/0", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())

			h = buildHierarchy("255.255.255.0/24", "255.255.255.0/25")
			block, found, err := h.FindAvailableBlock("255.255.255.0/24", 25)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(block.String()).To(Equal("255.255.255.128/25"))
		})

		It("should work with IPv6 parents", func() {
			h := buildHierarchy("2001:db8::/32", "2001:db8::/48")
			block, found, err := h.FindAvailableBlock("2001:db8::/32", 48)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(block.String()).To(Equal("2001:db8:1::/48"))
		})

		It("should reject invalid requests", func() {
			h := buildHierarchy("10.0.0.0/8")
			_, _, err := h.FindAvailableBlock("10.0.0.0/8", 8)
			Expect(err).To(MatchError(ErrInvalidPrefixRequest))
			_, _, err = h.FindAvailableBlock("10.0.0.0/8", 4)
			Expect(err).To(MatchError(ErrInvalidPrefixRequest))
			_, _, err = h.FindAvailableBlock("10.0.0.0/8", 33)
			Expect(err).To(MatchError(ErrInvalidPrefixRequest))
			_, _, err = h.FindAvailableBlock("11.0.0.0/8", 24)
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Context("exporting", func() {
		var h *Hierarchy[label]

		BeforeEach(func() {
			h = buildHierarchy("10.2.0.0/16", "10.0.0.0/8", "10.1.1.0/24", "10.1.0.0/16", "2001:db8::/32")
		})

		It("should walk the forest in address order", func() {
			type visit struct {
				cidr  string
				meta  label
				depth int
			}
			var visits []visit
			h.Walk(func(block Block, meta label, depth int) bool {
				visits = append(visits, visit{block.String(), meta, depth})
				return true
			})
			Expect(visits).To(Equal([]visit{
				{"10.0.0.0/8", "10.0.0.0/8", 0},
				{"10.1.0.0/16", "10.1.0.0/16", 1},
				{"10.1.1.0/24", "10.1.1.0/24", 2},
				{"10.2.0.0/16", "10.2.0.0/16", 1},
				{"2001:db8::/32", "2001:db8::/32", 0},
			}))
		})

		It("should prune the walk", func() {
			var visited []string
			Expect(h.WalkFrom("10.0.0.0/8", func(block Block, _ label, depth int) bool {
				visited = append(visited, block.String())
				return depth < 1
			})).To(Succeed())
			Expect(visited).To(Equal([]string{"10.0.0.0/8", "10.1.0.0/16", "10.2.0.0/16"}))

			Expect(h.WalkFrom("11.0.0.0/8", func(Block, label, int) bool { return true })).To(MatchError(ErrNotFound))
		})

		It("should export nested trees", func() {
			tree, err := h.Subtree("10.1.0.0/16")
			Expect(err).NotTo(HaveOccurred())
			Expect(tree).To(Equal(Tree{"10.1.0.0/16": Tree{"10.1.1.0/24": Tree{}}}))

			Expect(h.Forest()).To(Equal(Tree{
				"10.0.0.0/8": Tree{
					"10.1.0.0/16": Tree{"10.1.1.0/24": Tree{}},
					"10.2.0.0/16": Tree{},
				},
				"2001:db8::/32": Tree{},
			}))

			_, err = h.Subtree("10.3.0.0/16")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should generate graphviz output", func() {
			var buf bytes.Buffer
			Expect(h.Graphviz(&buf)).To(Succeed())
			Expect(buf.String()).To(HavePrefix("digraph G {\n"))
			Expect(buf.String()).To(ContainSubstring(`"10.0.0.0/8" -> "10.1.0.0/16";`))
			Expect(buf.String()).To(ContainSubstring(`"10.1.0.0/16" -> "10.1.1.0/24";`))
			Expect(buf.String()).To(ContainSubstring(`"2001:db8::/32" [style=filled`))
			Expect(buf.String()).To(HaveSuffix("}\n"))
		})
	})
})
