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

// Package cmd contains the commands of ipamctl.
package cmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"github.com/liqotech/ipamctl/pkg/ipamctl/factory"
)

const (
	envPrefix         = "IPAMCTL"
	defaultConfigName = ".ipamctl"
)

const ipamctlShortHelp = "ipamctl - Inspect the hierarchy of your address blocks"

const ipamctlLongHelp = `ipamctl organizes the address blocks registered across your environments
(static inventories, AWS VPCs, Azure virtual networks and GCP subnetworks)
into a containment hierarchy, and allows to query it.

Each block is nested below the smallest registered block containing it, so that
the hierarchy can be used to find the owner of an address, to look for free
space within a block, and to check how much of each block is allocated.

Sources are configured through flags, through environment variables prefixed
with IPAMCTL_ (e.g. IPAMCTL_AWS_REGION) or through a configuration file
(default $HOME/.ipamctl.yaml).

Examples:
  $ {{ .Executable }} tree --source inventory.yaml
  $ {{ .Executable }} lookup 10.0.1.17 --aws-region eu-west-1
  $ {{ .Executable }} available 10.0.0.0/16 --prefix-length 24 --source inventory.yaml
`

// WithTemplate renders the help text, replacing the executable name.
func WithTemplate(str string) string {
	tmpl := template.Must(template.New("help").Parse(str))
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Executable string }{filepath.Base(os.Args[0])}); err != nil {
		return str
	}
	return buf.String()
}

// NewRootCommand initializes the tree of commands.
func NewRootCommand(ctx context.Context) *cobra.Command {
	f := factory.New()
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "ipamctl",
		Short:        ipamctlShortHelp,
		Long:         WithTemplate(ipamctlLongHelp),
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cmd.Flags(), configFile); err != nil {
				return err
			}
			f.Initialize()
			return nil
		},
	}

	flagset := flag.NewFlagSet("klog", flag.PanicOnError)
	klog.InitFlags(flagset)
	rootCmd.PersistentFlags().AddGoFlagSet(flagset)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path of the configuration file (default $HOME/.ipamctl.yaml)")
	f.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newTreeCommand(ctx, f))
	rootCmd.AddCommand(newChildrenCommand(ctx, f))
	rootCmd.AddCommand(newParentCommand(ctx, f))
	rootCmd.AddCommand(newLookupCommand(ctx, f))
	rootCmd.AddCommand(newAvailableCommand(ctx, f))
	rootCmd.AddCommand(newTagsCommand(ctx, f))
	rootCmd.AddCommand(newFindCommand(ctx, f))
	rootCmd.AddCommand(newReportCommand(ctx, f))
	rootCmd.AddCommand(newGraphvizCommand(ctx, f))
	return rootCmd
}

// initConfig reads the configuration file and the environment, and applies
// the values to the flags not explicitly set on the command line.
func initConfig(flags *pflag.FlagSet, configFile string) error {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(defaultConfigName)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read the configuration: %w", err)
		}
	} else {
		klog.V(2).Infof("Using configuration file %q", v.ConfigFileUsed())
	}

	return bindFlags(flags, v)
}

func bindFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}

		var err error
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			err = slice.Replace(v.GetStringSlice(f.Name))
		} else {
			err = flags.Set(f.Name, v.GetString(f.Name))
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid value for flag %q: %w", f.Name, err))
		}
	})
	return utilerrors.NewAggregate(errs)
}
