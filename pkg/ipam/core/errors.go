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

import "errors"

var (
	// ErrMalformedAddress is returned when a block or address string cannot be parsed.
	ErrMalformedAddress = errors.New("malformed address")
	// ErrNotFound is returned when a query references a block that is not part of the hierarchy.
	ErrNotFound = errors.New("block not found")
	// ErrInvalidPrefixRequest is returned when a sub-block is requested with a prefix length
	// that is not strictly greater than the one of the parent block, or exceeds the address width.
	ErrInvalidPrefixRequest = errors.New("invalid prefix length request")
)
