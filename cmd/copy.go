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
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oliverwang1107/PTCG-deck-analyze/store"
)

// copyCardsCmd represents the copy-cards command
var copyCardsCmd = &cobra.Command{
	Use:   "copy-cards",
	Short: "Copy cards between databases, optionally filtered by regulation mark",
	RunE: func(cmd *cobra.Command, args []string) error {
		srcPath, _ := cmd.Flags().GetString("src")
		dstPath, _ := cmd.Flags().GetString("dst")
		markFlags, _ := cmd.Flags().GetStringArray("regulation-mark")
		marks := parseRegulationMarks(markFlags)

		if _, err := os.Stat(srcPath); err != nil {
			return fmt.Errorf("source DB not found: %s", srcPath)
		}

		src, err := store.Open(srcPath)
		if err != nil {
			return err
		}
		defer src.Close()
		dst, err := store.Open(dstPath)
		if err != nil {
			return err
		}
		defer dst.Close()

		copied, err := store.CopyCards(src, dst, marks)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "copied %d cards from %s to %s\n", copied, srcPath, dstPath)
		if len(marks) > 0 {
			fmt.Fprintf(os.Stderr, "regulation marks: %s\n", strings.Join(marks, ","))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(copyCardsCmd)

	copyCardsCmd.Flags().String("src", "", "source SQLite file path")
	copyCardsCmd.Flags().String("dst", "", "destination SQLite file path")
	copyCardsCmd.Flags().StringArray("regulation-mark", nil, "only copy cards with these marks (e.g. H,I,J; repeatable)")
	copyCardsCmd.MarkFlagRequired("src")
	copyCardsCmd.MarkFlagRequired("dst")
}
