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

package fetch

import "time"

// Card classification values. Unknown is a first-class value: cards whose
// section headers match no locale keyword stay unknown.
const (
	TypePokemon = "pokemon"
	TypeTrainer = "trainer"
	TypeEnergy  = "energy"
	TypeUnknown = "unknown"
)

// Card is one parsed detail page. Optional fields are pointers so a missing
// value round-trips as NULL through the store.
type Card struct {
	// CardID is the upstream-assigned integer from the detail-page URL and
	// the primary key in the local store.
	CardID int    `json:"card_id"`
	Name   string `json:"name"`
	// EvolveMarker is the stage prefix shown before the name, when present.
	EvolveMarker *string `json:"evolve_marker"`
	CardType     string  `json:"card_type"`

	HP          *int    `json:"hp"`
	ElementCode *string `json:"element_code"`
	Element     *string `json:"element"`

	// RegulationMark is the legal-era letter. Stored as printed; compared
	// upper-cased.
	RegulationMark     *string `json:"regulation_mark"`
	CollectorNumber    *string `json:"collector_number"`
	ExpansionCode      *string `json:"expansion_code"`
	ExpansionName      *string `json:"expansion_name"`
	ExpansionSymbolURL *string `json:"expansion_symbol_url"`
	Illustrator        *string `json:"illustrator"`
	ImageURL           *string `json:"image_url"`

	WeaknessCode    *string `json:"weakness_code"`
	WeaknessValue   *string `json:"weakness_value"`
	ResistanceCode  *string `json:"resistance_code"`
	ResistanceValue *string `json:"resistance_value"`
	RetreatCost     *int    `json:"retreat_cost"`

	PokedexNo   *int     `json:"pokedex_no"`
	HeightM     *float64 `json:"height_m"`
	WeightKg    *float64 `json:"weight_kg"`
	Description *string  `json:"description"`

	SourceURL string `json:"source_url"`
	FetchedAt string `json:"fetched_at"`

	Skills []Skill `json:"skills"`
}

// Skill is one ability, attack, or trainer/energy effect owned by a card.
// Idx is a dense 0-based sequence in document order across all sections.
type Skill struct {
	Idx  int     `json:"idx"`
	Kind *string `json:"kind"`
	Name *string `json:"name"`
	// Cost is the ordered energy-code sequence; duplicates are meaningful.
	Cost   []string `json:"cost"`
	Damage *string  `json:"damage"`
	Effect *string  `json:"effect"`

	EffectTextNorm *string `json:"-"`
	// InstructionsJSON is a downstream decomposition, persisted opaquely.
	InstructionsJSON *string `json:"-"`
}

func utcNow() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
