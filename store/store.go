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

// Package store persists card records in a single-file SQLite database.
// Column names and indexes are part of the contract: downstream consumers
// query the file directly.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/oliverwang1107/PTCG-deck-analyze/fetch"
)

const SchemaVersion = 1

// Store wraps one SQLite connection pool. Writers must stay single-threaded
// per card; the pipeline funnels every upsert through one goroutine.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file with foreign keys enforced.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cards (
	card_id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	evolve_marker TEXT,
	card_type TEXT,
	hp INTEGER,
	element_code TEXT,
	element TEXT,
	regulation_mark TEXT,
	collector_number TEXT,
	expansion_code TEXT,
	expansion_name TEXT,
	expansion_symbol_url TEXT,
	illustrator TEXT,
	image_url TEXT,
	weakness_code TEXT,
	weakness_value TEXT,
	resistance_code TEXT,
	resistance_value TEXT,
	retreat_cost INTEGER,
	pokedex_no INTEGER,
	height_m REAL,
	weight_kg REAL,
	description TEXT,
	source_url TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	raw_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_name ON cards(name);
CREATE INDEX IF NOT EXISTS idx_cards_expansion_code ON cards(expansion_code);
CREATE INDEX IF NOT EXISTS idx_cards_collector_number ON cards(collector_number);

CREATE TABLE IF NOT EXISTS skills (
	skill_id INTEGER PRIMARY KEY AUTOINCREMENT,
	card_id INTEGER NOT NULL,
	idx INTEGER NOT NULL,
	kind TEXT,
	name TEXT,
	cost_json TEXT,
	damage TEXT,
	effect TEXT,
	effect_text_norm TEXT,
	instructions_json TEXT,
	FOREIGN KEY(card_id) REFERENCES cards(card_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_skills_card_id ON skills(card_id);
`

// Init creates the schema and applies additive upgrades. Safe to call on
// every open; ALTERs for columns that already exist are swallowed.
func (s *Store) Init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	for _, alter := range []string{
		"ALTER TABLE skills ADD COLUMN effect_text_norm TEXT;",
		"ALTER TABLE skills ADD COLUMN instructions_json TEXT;",
	} {
		s.db.Exec(alter)
	}
	if _, err := s.db.Exec(
		"INSERT OR IGNORE INTO meta(key, value) VALUES('schema_version', ?);",
		fmt.Sprint(SchemaVersion),
	); err != nil {
		return fmt.Errorf("seed schema version: %w", err)
	}
	return nil
}

// ExistingCardIDs returns the set of card IDs already present.
func (s *Store) ExistingCardIDs() (map[int]struct{}, error) {
	rows, err := s.db.Query("SELECT card_id FROM cards;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := map[int]struct{}{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func costJSON(cost []string) (string, error) {
	if cost == nil {
		cost = []string{}
	}
	b, err := json.Marshal(cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UpsertCard replaces the card row and its whole skill list in one
// transaction, so readers see either the old or the new skill set, never a
// mix.
func (s *Store) UpsertCard(card *fetch.Card) error {
	raw, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("card %d: marshal raw: %w", card.CardID, err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO cards(
			card_id, name, evolve_marker, card_type, hp, element_code, element,
			regulation_mark, collector_number, expansion_code, expansion_name,
			expansion_symbol_url, illustrator, image_url,
			weakness_code, weakness_value, resistance_code, resistance_value, retreat_cost,
			pokedex_no, height_m, weight_kg, description,
			source_url, fetched_at, raw_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			name=excluded.name,
			evolve_marker=excluded.evolve_marker,
			card_type=excluded.card_type,
			hp=excluded.hp,
			element_code=excluded.element_code,
			element=excluded.element,
			regulation_mark=excluded.regulation_mark,
			collector_number=excluded.collector_number,
			expansion_code=excluded.expansion_code,
			expansion_name=excluded.expansion_name,
			expansion_symbol_url=excluded.expansion_symbol_url,
			illustrator=excluded.illustrator,
			image_url=excluded.image_url,
			weakness_code=excluded.weakness_code,
			weakness_value=excluded.weakness_value,
			resistance_code=excluded.resistance_code,
			resistance_value=excluded.resistance_value,
			retreat_cost=excluded.retreat_cost,
			pokedex_no=excluded.pokedex_no,
			height_m=excluded.height_m,
			weight_kg=excluded.weight_kg,
			description=excluded.description,
			source_url=excluded.source_url,
			fetched_at=excluded.fetched_at,
			raw_json=excluded.raw_json
		;`,
		card.CardID, card.Name, card.EvolveMarker, card.CardType, card.HP,
		card.ElementCode, card.Element, card.RegulationMark, card.CollectorNumber,
		card.ExpansionCode, card.ExpansionName, card.ExpansionSymbolURL,
		card.Illustrator, card.ImageURL,
		card.WeaknessCode, card.WeaknessValue, card.ResistanceCode, card.ResistanceValue,
		card.RetreatCost, card.PokedexNo, card.HeightM, card.WeightKg, card.Description,
		card.SourceURL, card.FetchedAt, string(raw),
	); err != nil {
		return fmt.Errorf("card %d: upsert: %w", card.CardID, err)
	}

	if _, err := tx.Exec("DELETE FROM skills WHERE card_id = ?;", card.CardID); err != nil {
		return fmt.Errorf("card %d: clear skills: %w", card.CardID, err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO skills(card_id, idx, kind, name, cost_json, damage, effect, effect_text_norm, instructions_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, sk := range card.Skills {
		cost, err := costJSON(sk.Cost)
		if err != nil {
			return fmt.Errorf("card %d: marshal cost: %w", card.CardID, err)
		}
		if _, err := stmt.Exec(
			card.CardID, sk.Idx, sk.Kind, sk.Name, cost,
			sk.Damage, sk.Effect, sk.EffectTextNorm, sk.InstructionsJSON,
		); err != nil {
			return fmt.Errorf("card %d: insert skill %d: %w", card.CardID, sk.Idx, err)
		}
	}
	return tx.Commit()
}

const cardColumns = `card_id, name, evolve_marker, card_type, hp, element_code, element,
	regulation_mark, collector_number, expansion_code, expansion_name,
	expansion_symbol_url, illustrator, image_url,
	weakness_code, weakness_value, resistance_code, resistance_value, retreat_cost,
	pokedex_no, height_m, weight_kg, description, source_url, fetched_at`

func scanCard(scan func(dest ...any) error) (*fetch.Card, error) {
	var c fetch.Card
	var hp, retreat, pokedex sql.NullInt64
	var height, weight sql.NullFloat64
	var evolve, cardType, elementCode, element, regMark, collector sql.NullString
	var expCode, expName, expSymbol, illustrator, imageURL sql.NullString
	var weakCode, weakValue, resistCode, resistValue, description sql.NullString
	if err := scan(
		&c.CardID, &c.Name, &evolve, &cardType, &hp, &elementCode, &element,
		&regMark, &collector, &expCode, &expName,
		&expSymbol, &illustrator, &imageURL,
		&weakCode, &weakValue, &resistCode, &resistValue, &retreat,
		&pokedex, &height, &weight, &description, &c.SourceURL, &c.FetchedAt,
	); err != nil {
		return nil, err
	}
	c.EvolveMarker = nullStr(evolve)
	c.CardType = cardType.String
	c.HP = nullInt(hp)
	c.ElementCode = nullStr(elementCode)
	c.Element = nullStr(element)
	c.RegulationMark = nullStr(regMark)
	c.CollectorNumber = nullStr(collector)
	c.ExpansionCode = nullStr(expCode)
	c.ExpansionName = nullStr(expName)
	c.ExpansionSymbolURL = nullStr(expSymbol)
	c.Illustrator = nullStr(illustrator)
	c.ImageURL = nullStr(imageURL)
	c.WeaknessCode = nullStr(weakCode)
	c.WeaknessValue = nullStr(weakValue)
	c.ResistanceCode = nullStr(resistCode)
	c.ResistanceValue = nullStr(resistValue)
	c.RetreatCost = nullInt(retreat)
	c.PokedexNo = nullInt(pokedex)
	c.HeightM = nullFloat(height)
	c.WeightKg = nullFloat(weight)
	c.Description = nullStr(description)
	return &c, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (s *Store) cardSkills(cardID int) ([]fetch.Skill, error) {
	rows, err := s.db.Query(`
		SELECT idx, kind, name, cost_json, damage, effect, effect_text_norm, instructions_json
		FROM skills WHERE card_id = ? ORDER BY idx ASC;`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var skills []fetch.Skill
	for rows.Next() {
		var sk fetch.Skill
		var kind, name, cost, damage, effect, norm, instructions sql.NullString
		if err := rows.Scan(&sk.Idx, &kind, &name, &cost, &damage, &effect, &norm, &instructions); err != nil {
			return nil, err
		}
		sk.Kind = nullStr(kind)
		sk.Name = nullStr(name)
		sk.Damage = nullStr(damage)
		sk.Effect = nullStr(effect)
		sk.EffectTextNorm = nullStr(norm)
		sk.InstructionsJSON = nullStr(instructions)
		if cost.Valid && cost.String != "" {
			if err := json.Unmarshal([]byte(cost.String), &sk.Cost); err != nil {
				return nil, fmt.Errorf("card %d skill %d: decode cost: %w", cardID, sk.Idx, err)
			}
		}
		skills = append(skills, sk)
	}
	return skills, rows.Err()
}

// GetCard loads one card with its ordered skills. Returns sql.ErrNoRows
// when the card is absent.
func (s *Store) GetCard(cardID int) (*fetch.Card, error) {
	row := s.db.QueryRow("SELECT "+cardColumns+" FROM cards WHERE card_id = ?;", cardID)
	card, err := scanCard(row.Scan)
	if err != nil {
		return nil, err
	}
	card.Skills, err = s.cardSkills(cardID)
	return card, err
}

// CardsByRegulation loads cards (with skills) whose regulation mark matches
// one of the given tokens, case-insensitively. Empty marks means all cards.
func (s *Store) CardsByRegulation(marks []string) ([]*fetch.Card, error) {
	query := "SELECT " + cardColumns + " FROM cards"
	var args []any
	if len(marks) > 0 {
		placeholders := make([]string, len(marks))
		for i, m := range marks {
			placeholders[i] = "?"
			args = append(args, strings.ToUpper(m))
		}
		query += " WHERE UPPER(regulation_mark) IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += ";"
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cards []*fetch.Card
	for rows.Next() {
		card, err := scanCard(rows.Scan)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, card := range cards {
		if card.Skills, err = s.cardSkills(card.CardID); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

// CopyCards applies the upsert protocol to every matching source card in
// the destination store. Purely additive on the destination; returns the
// number of cards copied.
func CopyCards(src, dst *Store, marks []string) (int, error) {
	if err := dst.Init(); err != nil {
		return 0, err
	}
	cards, err := src.CardsByRegulation(marks)
	if err != nil {
		return 0, err
	}
	for i, card := range cards {
		if err := dst.UpsertCard(card); err != nil {
			return i, err
		}
	}
	return len(cards), nil
}

// CardSummary is one row of a name search.
type CardSummary struct {
	CardID          int
	Name            string
	ExpansionCode   *string
	CollectorNumber *string
	CardType        *string
}

// QueryByName finds cards whose name contains the fragment, highest card_id
// first.
func (s *Store) QueryByName(name string, limit int) ([]CardSummary, error) {
	rows, err := s.db.Query(`
		SELECT card_id, name, expansion_code, collector_number, card_type
		FROM cards
		WHERE name LIKE ?
		ORDER BY card_id DESC
		LIMIT ?;`, "%"+name+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CardSummary
	for rows.Next() {
		var r CardSummary
		var expCode, collector, cardType sql.NullString
		if err := rows.Scan(&r.CardID, &r.Name, &expCode, &collector, &cardType); err != nil {
			return nil, err
		}
		r.ExpansionCode = nullStr(expCode)
		r.CollectorNumber = nullStr(collector)
		r.CardType = nullStr(cardType)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SkillEffectRow is one stored skill with effect text, for the
// normalization and LLM passes.
type SkillEffectRow struct {
	SkillID        int64
	CardID         int
	Name           *string
	Effect         *string
	EffectTextNorm *string
}

// SkillsWithEffect lists skills that have effect text. With onlyMissing,
// rows that already carry instructions are excluded. A non-positive limit
// means no limit.
func (s *Store) SkillsWithEffect(onlyMissing bool, limit int) ([]SkillEffectRow, error) {
	query := `
		SELECT skill_id, card_id, name, effect, effect_text_norm
		FROM skills
		WHERE effect IS NOT NULL`
	if onlyMissing {
		query += " AND (instructions_json IS NULL OR instructions_json = '')"
	}
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	query += ";"
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SkillEffectRow
	for rows.Next() {
		var r SkillEffectRow
		var name, effect, norm sql.NullString
		if err := rows.Scan(&r.SkillID, &r.CardID, &name, &effect, &norm); err != nil {
			return nil, err
		}
		r.Name = nullStr(name)
		r.Effect = nullStr(effect)
		r.EffectTextNorm = nullStr(norm)
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateSkillEnrichment writes the normalized text and/or instruction JSON
// back onto one skill row.
func (s *Store) UpdateSkillEnrichment(skillID int64, norm, instructionsJSON *string) error {
	_, err := s.db.Exec(`
		UPDATE skills
		SET effect_text_norm = COALESCE(?, effect_text_norm),
		    instructions_json = COALESCE(?, instructions_json)
		WHERE skill_id = ?;`, norm, instructionsJSON, skillID)
	return err
}
