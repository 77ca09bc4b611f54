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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oliverwang1107/PTCG-deck-analyze/effects"
	"github.com/oliverwang1107/PTCG-deck-analyze/llm"
	"github.com/oliverwang1107/PTCG-deck-analyze/store"
)

// normalizeEffectsCmd represents the normalize-effects command
var normalizeEffectsCmd = &cobra.Command{
	Use:   "normalize-effects",
	Short: "Re-derive normalized effect text and heuristic instructions for all skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Init(); err != nil {
			return err
		}

		rows, err := st.SkillsWithEffect(false, 0)
		if err != nil {
			return err
		}
		updated := 0
		for _, r := range rows {
			if r.Effect == nil {
				continue
			}
			norm := effects.Normalize(*r.Effect)
			instructions := effects.SplitInstructions(norm)
			if instructions == nil {
				instructions = []string{}
			}
			instrJSON, err := json.Marshal(instructions)
			if err != nil {
				return err
			}
			instrStr := string(instrJSON)
			if err := st.UpdateSkillEnrichment(r.SkillID, &norm, &instrStr); err != nil {
				return err
			}
			updated++
		}
		fmt.Printf("normalized skills: %d\n", updated)
		return nil
	},
}

// llmEffectsCmd represents the llm-effects command
var llmEffectsCmd = &cobra.Command{
	Use:   "llm-effects",
	Short: "Use OpenRouter to decompose skill text into instruction JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		model, _ := cmd.Flags().GetString("model")
		apiKey, _ := cmd.Flags().GetString("api-key")
		baseURL, _ := cmd.Flags().GetString("base-url")
		limit, _ := cmd.Flags().GetInt("limit")
		temperature, _ := cmd.Flags().GetFloat64("temperature")
		force, _ := cmd.Flags().GetBool("force")

		client, err := llm.NewClient(apiKey, baseURL)
		if err != nil {
			return err
		}

		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Init(); err != nil {
			return err
		}

		rows, err := st.SkillsWithEffect(!force, limit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("no skills to process")
			return nil
		}

		processed := 0
		for _, r := range rows {
			text := orEmpty(r.EffectTextNorm)
			if text == "" {
				text = orEmpty(r.Effect)
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			instructions, err := client.StructureEffect(cmd.Context(), model, text, temperature)
			if err != nil {
				fmt.Fprintf(os.Stderr, "[fail] card %d skill %d: %v\n", r.CardID, r.SkillID, err)
				continue
			}
			if err := st.UpdateSkillEnrichment(r.SkillID, nil, &instructions); err != nil {
				return err
			}
			processed++
			if processed%20 == 0 {
				fmt.Printf("[ok] %d/%d\n", processed, len(rows))
			}
		}
		fmt.Printf("done: %d skills updated (model=%s)\n", processed, model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeEffectsCmd)
	rootCmd.AddCommand(llmEffectsCmd)

	normalizeEffectsCmd.Flags().String("db", "ptcg_tw.sqlite", "SQLite file path")

	llmEffectsCmd.Flags().String("db", "ptcg_tw.sqlite", "SQLite file path")
	llmEffectsCmd.Flags().String("model", llm.DefaultModel, "OpenRouter model name")
	llmEffectsCmd.Flags().String("api-key", "", "override OPENROUTER_API_KEY")
	llmEffectsCmd.Flags().String("base-url", "", "override the OpenRouter API URL")
	llmEffectsCmd.Flags().Int("limit", 50, "maximum skills to process")
	llmEffectsCmd.Flags().Float64("temperature", 0.1, "sampling temperature")
	llmEffectsCmd.Flags().Bool("force", false, "re-run skills that already have instructions")
}
