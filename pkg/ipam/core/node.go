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

import "slices"

// node is an entry of the forest. Links to other nodes are stored as canonical keys:
// the forest map is the only owner of nodes.
type node[M any] struct {
	block    Block
	meta     M
	parent   string
	children []string
}

func newNode[M any](block Block, meta M) *node[M] {
	return &node[M]{block: block, meta: meta}
}

func (n *node[M]) isRoot() bool {
	return n.parent == ""
}

func (n *node[M]) addChild(key string) {
	n.children = append(n.children, key)
}

func (n *node[M]) removeChild(key string) {
	n.children = slices.DeleteFunc(n.children, func(k string) bool { return k == key })
}
