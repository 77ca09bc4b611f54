// Copyright © 2024
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
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// errPartialFailure marks a run that finished with per-card failures; the
// process exits 2 instead of 1.
var errPartialFailure = errors.New("partial failure")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ptcgdb",
	Short: "Maintain a local SQLite database of cards from the official card-search sites.",
	Long: `Maintain a local SQLite database of cards from the official card-search sites.

'sync' discovers card IDs through the search endpoint, fetches every detail
page under a global rate limit, and writes one row per card plus its ordered
skills. 'copy-cards' copies subsets between databases filtered by regulation
mark. 'query' and 'show' read the database back.

To use environ variables, use the prefix 'PTCG'.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). Exit status is 0 on
// success, 2 when a run finished with per-card failures, 1 otherwise.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errPartialFailure) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ptcgdb.yaml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".ptcgdb" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".ptcgdb")
	}

	viper.SetEnvPrefix("ptcg")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// parseRegulationMarks flattens repeated flag values, splitting on commas
// and spaces, and upper-cases each token.
func parseRegulationMarks(items []string) []string {
	seen := map[string]bool{}
	var marks []string
	for _, item := range items {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool {
			return r == ',' || r == ' '
		}) {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			marks = append(marks, part)
		}
	}
	sort.Strings(marks)
	return marks
}
