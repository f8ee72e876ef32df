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
	"strconv"
	"strings"
)

// Percentage is a flag value in the [0, 100] range, optionally followed by a "%" sign
// and possibly fractional (e.g. "12.5%").
type Percentage struct {
	Val float64
}

func (p Percentage) String() string {
	return strconv.FormatFloat(p.Val, 'f', -1, 64)
}

// Set parses the percentage, leaving the current value untouched on errors.
func (p *Percentage) Set(str string) error {
	str = strings.TrimSuffix(strings.TrimSpace(str), "%")
	if str == "" {
		return nil
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("invalid percentage %q: %w", str, err)
	}
	if !(val >= 0 && val <= 100) {
		return fmt.Errorf("percentage %v out of the [0, 100] range", val)
	}
	p.Val = val
	return nil
}

// Ratio returns the percentage as a fraction of one.
func (p Percentage) Ratio() float64 {
	return p.Val / 100
}

// Type returns the percentage type.
func (p Percentage) Type() string {
	return "percentage"
}
