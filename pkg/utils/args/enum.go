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
	"fmt"
	"slices"
	"strings"
)

// StringEnum implements the flag.Value interface and restricts the value to a set of allowed strings.
type StringEnum struct {
	Allowed []string
	Value   string
}

// NewEnum returns a StringEnum accepting the given values, initialized with the default one.
func NewEnum(allowed []string, def string) *StringEnum {
	return &StringEnum{Allowed: allowed, Value: def}
}

// String returns the current value.
func (e StringEnum) String() string {
	return e.Value
}

// Set checks that the provided string is one of the allowed values, and stores it.
func (e *StringEnum) Set(str string) error {
	if !slices.Contains(e.Allowed, str) {
		return fmt.Errorf("invalid value %q, allowed values: %s", str, strings.Join(e.Allowed, ", "))
	}
	e.Value = str
	return nil
}

// Type returns the enum type.
func (e StringEnum) Type() string {
	return "string"
}
