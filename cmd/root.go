// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gokernel/gokernel/cfg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the root command fresh, taking the boot action as a
// parameter so tests can observe the assembled Config without starting a
// real kernel. Execute uses it with Boot; every other caller should too.
func NewRootCmd(boot func(*cfg.Config) error) (*cobra.Command, error) {
	var (
		cfgFile       string
		printConfig   bool
		bindErr       error
		configFileErr error
		unmarshalErr  error
		bootConfig    cfg.Config
	)

	cmd := &cobra.Command{
		Use:   "gokernel [flags] root-image",
		Short: "Boot the kernel against a disk image or block device",
		Long: `gokernel boots a small UNIX-like kernel core: a round-robin process
scheduler, a VFS resolution layer with mount points and symlinks, an
ext2-compatible on-disk filesystem driver, a block cache, and a tty line
discipline. The single positional argument names the disk image or block
device to mount as the root filesystem.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if bindErr != nil {
				return bindErr
			}
			if configFileErr != nil {
				return configFileErr
			}
			if unmarshalErr != nil {
				return unmarshalErr
			}

			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("canonicalizing root image path: %w", err)
			}
			bootConfig.Root = cfg.ResolvedPath(root)

			if err := cfg.Rationalize(&bootConfig); err != nil {
				return err
			}
			if err := cfg.ValidateConfig(&bootConfig); err != nil {
				return err
			}

			if printConfig {
				out, err := cfg.ToYAML(&bootConfig)
				if err != nil {
					return fmt.Errorf("rendering config as yaml: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}

			return boot(&bootConfig)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to the config-file")
	cmd.PersistentFlags().BoolVar(&printConfig, "print-config", false, "Print the fully rationalized config as YAML and exit without booting.")
	bindErr = cfg.BindFlags(cmd.PersistentFlags())

	cobra.OnInitialize(func() {
		if cfgFile == "" {
			unmarshalErr = viper.Unmarshal(&bootConfig, viper.DecodeHook(cfg.DecodeHook()))
			return
		}
		resolved, err := filepath.Abs(cfgFile)
		if err != nil {
			configFileErr = fmt.Errorf("error while resolving config file path: %w", err)
			return
		}
		viper.SetConfigFile(resolved)
		viper.SetConfigType("yaml")

		if err := viper.ReadInConfig(); err != nil {
			configFileErr = fmt.Errorf("error while reading config file: %w", err)
			return
		}
		unmarshalErr = viper.Unmarshal(&bootConfig, viper.DecodeHook(cfg.DecodeHook()))
	})

	return cmd, bindErr
}

func Execute() {
	cmd, err := NewRootCmd(Boot)
	if err == nil {
		err = cmd.Execute()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
