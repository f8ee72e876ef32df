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
	"time"

	"github.com/spf13/pflag"

	"github.com/liqotech/ipamctl/pkg/utils/args"
)

// FlagName is the type for the name of the flags.
type FlagName string

func (fn FlagName) String() string {
	return string(fn)
}

const (
	// FlagNameSource is the path of a static file containing address blocks.
	FlagNameSource FlagName = "source"
	// FlagNameAWSRegion is the AWS region the VPC blocks are loaded from.
	FlagNameAWSRegion FlagName = "aws-region"
	// FlagNameAzureSubscriptionID is the Azure subscription the virtual network blocks are loaded from.
	FlagNameAzureSubscriptionID FlagName = "azure-subscription-id"
	// FlagNameGCPProject is the GCP project the subnetwork blocks are loaded from.
	FlagNameGCPProject FlagName = "gcp-project"
	// FlagNameGCPCredentialsPath is the path of the GCP service account credentials.
	FlagNameGCPCredentialsPath FlagName = "gcp-credentials-path"
	// FlagNameLoadTimeout bounds the time each source can take to return its blocks.
	FlagNameLoadTimeout FlagName = "load-timeout"
	// FlagNameFailFast aborts the loading as soon as a source fails.
	FlagNameFailFast FlagName = "fail-fast"
)

// Options contains the configuration of the sources the blocks are loaded from.
type Options struct {
	Sources             args.StringList
	AWSRegion           string
	AzureSubscriptionID string
	GCPProject          string
	GCPCredentialsPath  string
	LoadTimeout         time.Duration
	FailFast            bool
}

// InitFlags initializes the flags for the Options struct.
func InitFlags(flagset *pflag.FlagSet, o *Options) {
	flagset.Var(&o.Sources, FlagNameSource.String(),
		"Static JSON or YAML files containing address blocks (can be repeated, or comma separated)")
	flagset.StringVar(&o.AWSRegion, FlagNameAWSRegion.String(), "",
		"Load the VPC blocks of the given AWS region")
	flagset.StringVar(&o.AzureSubscriptionID, FlagNameAzureSubscriptionID.String(), "",
		"Load the virtual network blocks of the given Azure subscription")
	flagset.StringVar(&o.GCPProject, FlagNameGCPProject.String(), "",
		"Load the subnetwork blocks of the given GCP project")
	flagset.StringVar(&o.GCPCredentialsPath, FlagNameGCPCredentialsPath.String(), "",
		"The path of the GCP service account credentials file (defaults to the application default credentials)")
	flagset.DurationVar(&o.LoadTimeout, FlagNameLoadTimeout.String(), 30*time.Second,
		"The maximum time each source can take to return its blocks (0 to disable)")
	flagset.BoolVar(&o.FailFast, FlagNameFailFast.String(), false,
		"Abort as soon as a source fails, instead of continuing with the blocks of the other ones")
}

// IPAMOptions returns the IPAM options matching the configuration.
func (o *Options) IPAMOptions() []Option {
	return []Option{
		WithLoadTimeout(o.LoadTimeout),
		WithFailFast(o.FailFast),
	}
}
