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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oliverwang1107/PTCG-deck-analyze/fetch"
	"github.com/oliverwang1107/PTCG-deck-analyze/store"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch cards from the official search and write them to the DB",
	Long: `Fetch cards from the official search and write them to the DB.

Without --card-id, the search form is POSTed once to establish the result
set, list pages are walked for card IDs, and each detail page is fetched by
a bounded worker pool behind one global rate limiter. Cards already in the
DB are skipped unless --skip-existing=false.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := fetch.ParseSiteLanguage(viper.GetString("lang"))
		if err != nil {
			return err
		}

		marks := parseRegulationMarks(viper.GetStringSlice("regulation-mark"))
		var allowed map[string]bool
		if len(marks) > 0 {
			allowed = make(map[string]bool, len(marks))
			for _, m := range marks {
				allowed[m] = true
			}
		}

		dbPath := viper.GetString("db")
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Init(); err != nil {
			return err
		}

		opts := fetch.SyncOptions{
			Lang:   lang,
			CardID: viper.GetInt("card-id"),
			Params: fetch.SearchParams{
				Keyword:    viper.GetString("keyword"),
				CardType:   fetch.CardTypeParam(viper.GetString("card-type")),
				Regulation: viper.GetString("regulation"),
			},
			StartPage:    viper.GetInt("start-page"),
			EndPage:      viper.GetInt("end-page"),
			Limit:        viper.GetInt("limit"),
			Workers:      viper.GetInt("workers"),
			ListWorkers:  viper.GetInt("list-workers"),
			Delay:        time.Duration(viper.GetFloat64("delay") * float64(time.Second)),
			AllowedMarks: allowed,
			SkipExisting: viper.GetBool("skip-existing"),
			Proxies:      viper.GetBool("proxies"),
		}

		counters, err := fetch.Sync(cmd.Context(), st, opts)
		if err != nil {
			return err
		}
		if len(marks) > 0 {
			fmt.Fprintf(os.Stderr, "done: ok=%d skipped=%d fail=%d marks=%s db=%s\n",
				counters.OK, counters.Skipped, counters.Fail, strings.Join(marks, ","), dbPath)
		} else {
			fmt.Fprintf(os.Stderr, "done: ok=%d fail=%d db=%s\n", counters.OK, counters.Fail, dbPath)
		}
		if counters.Fail > 0 {
			return errPartialFailure
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("db", "ptcg_tw.sqlite", "SQLite file path")
	syncCmd.Flags().Int("card-id", 0, "fetch a single card by its detail ID")
	syncCmd.Flags().String("keyword", "", "search keyword")
	syncCmd.Flags().String("card-type", "all", "all|pokemon|trainer|energy")
	syncCmd.Flags().String("regulation", "all", "1|2|3|all")
	syncCmd.Flags().StringArray("regulation-mark", nil, "only store cards with these marks (e.g. G,H,I; repeatable)")
	syncCmd.Flags().Int("start-page", 1, "first list page to scan")
	syncCmd.Flags().Int("end-page", 0, "last list page to scan (default: last page)")
	syncCmd.Flags().Int("limit", 0, "stop after this many cards (debugging)")
	syncCmd.Flags().Int("workers", 4, "detail fetch concurrency")
	syncCmd.Flags().Int("list-workers", 8, "list page fetch concurrency")
	syncCmd.Flags().Float64("delay", 0.1, "global seconds between requests")
	syncCmd.Flags().Bool("skip-existing", true, "skip card IDs already in the DB")
	syncCmd.Flags().String("lang", "tw", "site to pull from: tw or jp")
	syncCmd.Flags().Bool("proxies", false, "route requests through the rotating proxy pool")

	viper.BindPFlag("db", syncCmd.Flags().Lookup("db"))
	viper.BindPFlag("card-id", syncCmd.Flags().Lookup("card-id"))
	viper.BindPFlag("keyword", syncCmd.Flags().Lookup("keyword"))
	viper.BindPFlag("card-type", syncCmd.Flags().Lookup("card-type"))
	viper.BindPFlag("regulation", syncCmd.Flags().Lookup("regulation"))
	viper.BindPFlag("regulation-mark", syncCmd.Flags().Lookup("regulation-mark"))
	viper.BindPFlag("start-page", syncCmd.Flags().Lookup("start-page"))
	viper.BindPFlag("end-page", syncCmd.Flags().Lookup("end-page"))
	viper.BindPFlag("limit", syncCmd.Flags().Lookup("limit"))
	viper.BindPFlag("workers", syncCmd.Flags().Lookup("workers"))
	viper.BindPFlag("list-workers", syncCmd.Flags().Lookup("list-workers"))
	viper.BindPFlag("delay", syncCmd.Flags().Lookup("delay"))
	viper.BindPFlag("skip-existing", syncCmd.Flags().Lookup("skip-existing"))
	viper.BindPFlag("lang", syncCmd.Flags().Lookup("lang"))
	viper.BindPFlag("proxies", syncCmd.Flags().Lookup("proxies"))
}
