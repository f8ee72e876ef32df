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

// Package ipamcore contains the address hierarchy engine.
// Blocks are organized in a forest where the parent of each block is its
// longest-prefix-match ancestor among the blocks of the same IP version.
// The engine supports:
// 1. Bulk construction from a list of blocks, tolerating malformed entries and duplicates
// 2. Incremental insertion, moving existing blocks under the new one when needed
// 3. Containment queries for blocks and single addresses
// 4. Search of unallocated sub-blocks within a parent block
package ipamcore
