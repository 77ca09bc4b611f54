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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oliverwang1107/PTCG-deck-analyze/fetch"
	"github.com/oliverwang1107/PTCG-deck-analyze/store"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print one card with its skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		cardID, _ := cmd.Flags().GetInt("card-id")
		asJSON, _ := cmd.Flags().GetBool("json")

		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Init(); err != nil {
			return err
		}

		card, err := st.GetCard(cardID)
		if errors.Is(err, sql.ErrNoRows) {
			fmt.Fprintf(os.Stderr, "card not found: %d\n", cardID)
			return errPartialFailure
		}
		if err != nil {
			return err
		}

		if asJSON {
			out, err := json.MarshalIndent(card, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		printCard(card)
		return nil
	},
}

func fmtEnergy(code *string) string {
	if code == nil {
		return ""
	}
	return "[" + *code + "]"
}

func printLine(label string, value string) {
	value = strings.TrimSpace(value)
	if value == "" || value == "--" {
		return
	}
	fmt.Printf("%s: %s\n", label, value)
}

func printCard(card *fetch.Card) {
	fmt.Printf("%s  (card_id=%d)\n", card.Name, card.CardID)

	var bits []string
	if card.CardType != "" {
		bits = append(bits, card.CardType)
	}
	if card.HP != nil {
		bits = append(bits, fmt.Sprintf("HP %d", *card.HP))
	}
	if card.ElementCode != nil || card.Element != nil {
		bits = append(bits, strings.TrimSpace(fmtEnergy(card.ElementCode)+orEmpty(card.Element)))
	}
	if card.EvolveMarker != nil {
		bits = append(bits, *card.EvolveMarker)
	}
	if len(bits) > 0 {
		fmt.Println(" - " + strings.Join(bits, " / "))
	}

	printLine("系列", strings.TrimSpace(orEmpty(card.ExpansionCode)+" "+orEmpty(card.ExpansionName)))
	printLine("卡號", orEmpty(card.CollectorNumber))
	printLine("規則標記", orEmpty(card.RegulationMark))
	printLine("插畫家", orEmpty(card.Illustrator))
	printLine("圖片", orEmpty(card.ImageURL))
	printLine("來源", card.SourceURL)
	printLine("抓取時間", card.FetchedAt)

	if card.WeaknessValue != nil {
		printLine("弱點", strings.TrimSpace(fmtEnergy(card.WeaknessCode)+" "+*card.WeaknessValue))
	}
	if card.ResistanceValue != nil {
		printLine("抵抗力", strings.TrimSpace(fmtEnergy(card.ResistanceCode)+" "+*card.ResistanceValue))
	}
	if card.RetreatCost != nil {
		printLine("撤退", fmt.Sprint(*card.RetreatCost))
	}
	if card.PokedexNo != nil {
		printLine("No.", fmt.Sprintf("No.%d", *card.PokedexNo))
	}
	if card.HeightM != nil {
		printLine("身高", fmt.Sprintf("%v m", *card.HeightM))
	}
	if card.WeightKg != nil {
		printLine("體重", fmt.Sprintf("%v kg", *card.WeightKg))
	}
	if card.Description != nil {
		fmt.Println("說明:")
		fmt.Println(*card.Description)
	}

	if len(card.Skills) == 0 {
		return
	}
	fmt.Println("\n招式/效果:")
	for _, s := range card.Skills {
		var cost strings.Builder
		for _, c := range s.Cost {
			cost.WriteString("[" + c + "]")
		}
		left := strings.TrimSpace(strings.Join([]string{orEmpty(s.Kind), orEmpty(s.Name)}, " "))
		right := strings.TrimSpace(strings.Join([]string{cost.String(), orEmpty(s.Damage)}, " "))
		fmt.Printf("- %s\n", left)
		if right != "" {
			fmt.Printf("  %s\n", right)
		}
		if s.Effect != nil {
			for _, line := range strings.Split(*s.Effect, "\n") {
				fmt.Printf("  %s\n", line)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().String("db", "ptcg_tw.sqlite", "SQLite file path")
	showCmd.Flags().Int("card-id", 0, "official detail ID (cards.card_id)")
	showCmd.Flags().Bool("json", false, "print JSON instead of text")
	showCmd.MarkFlagRequired("card-id")
}
