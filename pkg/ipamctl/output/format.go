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

package output

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/pterm/pterm"
	"sigs.k8s.io/yaml"

	"github.com/liqotech/ipamctl/pkg/ipam"
)

// Format represents the format of the output of the commands.
type Format string

const (
	// Pretty indicates that the output will be human readable.
	Pretty Format = "pretty"
	// JSON indicates that the output will be in JSON format.
	JSON Format = "json"
	// YAML indicates that the output will be in YAML format.
	YAML Format = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{string(Pretty), string(JSON), string(YAML)}

// Marshal serializes the data in the given machine readable format.
func Marshal(format Format, data interface{}) (string, error) {
	switch format {
	case JSON:
		jsonRes, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(jsonRes) + "\n", nil
	case YAML:
		yamlRes, err := yaml.Marshal(data)
		if err != nil {
			return "", err
		}
		return string(yamlRes), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

// SprintCIDRs renders a table of blocks.
func (p *Printer) SprintCIDRs(cidrs []ipam.CIDR) (string, error) {
	data := pterm.TableData{{"CIDR", "TYPE", "SOURCE", "TAGS"}}
	for i := range cidrs {
		data = append(data, []string{cidrs[i].String(), cidrs[i].Type, cidrs[i].Source, FormatTags(cidrs[i].Tags)})
	}
	return p.Table.WithData(data).Srender()
}

// FormatTags returns the tags in the form "key1=val1,key2=val2", sorted by key.
func FormatTags(tags map[string]string) string {
	strs := make([]string, 0, len(tags))
	for k, v := range tags {
		strs = append(strs, k+"="+v)
	}
	slices.Sort(strs)
	return strings.Join(strs, ",")
}

// BlockLabel returns a labeler displaying the type and the tags of the blocks known by the IPAM.
func BlockLabel(src interface {
	GetCIDR(key string) (ipam.CIDR, bool)
}) Labeler {
	return func(cidr string) string {
		record, found := src.GetCIDR(cidr)
		if !found {
			return cidr
		}
		text := fmt.Sprintf("%s %s", cidr, DataStyle.Sprint(record.Type))
		if tags := FormatTags(record.Tags); tags != "" {
			text += " " + pterm.Gray(tags)
		}
		return text
	}
}
