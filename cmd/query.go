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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oliverwang1107/PTCG-deck-analyze/store"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Fuzzy-search cards by name",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		name, _ := cmd.Flags().GetString("name")
		limit, _ := cmd.Flags().GetInt("limit")

		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("--name is required")
		}

		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Init(); err != nil {
			return err
		}

		rows, err := st.QueryByName(name, limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			fmt.Printf("%d\t%s\t%s\t%s\t%s\n",
				r.CardID, r.Name, orEmpty(r.ExpansionCode), orEmpty(r.CollectorNumber), orEmpty(r.CardType))
		}
		return nil
	},
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().String("db", "ptcg_tw.sqlite", "SQLite file path")
	queryCmd.Flags().String("name", "", "name fragment")
	queryCmd.Flags().Int("limit", 20, "maximum rows to list")
	queryCmd.MarkFlagRequired("name")
}
