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

package args

import (
	"slices"
	"strings"
)

// StringList collects the comma separated items of all the occurrences of a flag.
// Blank items are dropped, and items already present are not added twice.
// It implements pflag.SliceValue, so that a configuration file can replace the whole list.
type StringList struct {
	StringList []string
}

// String returns the items joined by commas.
func (sl StringList) String() string {
	return strings.Join(sl.StringList, ",")
}

// Set appends the items of a single occurrence of the flag.
func (sl *StringList) Set(str string) error {
	if sl.StringList == nil {
		sl.StringList = []string{}
	}
	for item := range strings.SplitSeq(str, ",") {
		if err := sl.Append(item); err != nil {
			return err
		}
	}
	return nil
}

// Append adds a single item.
func (sl *StringList) Append(item string) error {
	item = strings.TrimSpace(item)
	if item != "" && !slices.Contains(sl.StringList, item) {
		sl.StringList = append(sl.StringList, item)
	}
	return nil
}

// Replace drops the current items, and sets the given ones.
func (sl *StringList) Replace(items []string) error {
	sl.StringList = []string{}
	for _, item := range items {
		if err := sl.Set(item); err != nil {
			return err
		}
	}
	return nil
}

// GetSlice returns a copy of the items.
func (sl *StringList) GetSlice() []string {
	return slices.Clone(sl.StringList)
}

// Type returns the stringList type.
func (sl StringList) Type() string {
	return "stringList"
}
