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

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Energy codes on the Japanese site come from icon-<type> CSS classes; this
// table maps the class suffixes onto the codes the TW parser emits, so both
// locales share one schema.
var iconClassToCode = map[string]string{
	"grass":    "grass",
	"fire":     "fire",
	"water":    "water",
	"electric": "lightning",
	"psychic":  "psychic",
	"fighting": "fighting",
	"dark":     "dark",
	"steel":    "steel",
	"fairy":    "fairy",
	"dragon":   "dragon",
	"none":     "colorless",
}

var (
	iconClassRe = regexp.MustCompile(`^icon-(\w+)$`)
	collectorRe = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
	heightJPRe  = regexp.MustCompile(`高さ[：:]?\s*([0-9.]+)\s*m`)
	weightJPRe  = regexp.MustCompile(`重さ[：:]?\s*([0-9.]+)\s*kg`)
)

var trainerKeywordsJP = []string{"トレーナーズ", "グッズ", "サポート", "スタジアム", "ポケモンのどうぐ"}

func energyCodeFromIconClass(sel *goquery.Selection) *string {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	cls, _ := sel.Attr("class")
	for _, c := range strings.Fields(cls) {
		if m := iconClassRe.FindStringSubmatch(c); m != nil {
			if code, ok := iconClassToCode[m[1]]; ok {
				return &code
			}
			return strPtr(m[1])
		}
	}
	return nil
}

// parseDetailJP maps the Japanese detail page onto the same card record the
// TW parser produces. Selectors differ; the output schema does not.
func parseDetailJP(cardID int, sourceURL string, doc *goquery.Document) (*Card, error) {
	card := &Card{
		CardID:    cardID,
		SourceURL: sourceURL,
		FetchedAt: utcNow(),
	}

	h1 := doc.Find("h1.Heading1").First()
	if h1.Length() == 0 {
		return nil, fmt.Errorf("card %d: no detail heading", cardID)
	}
	card.Name = strings.TrimSpace(h1.Text())
	if card.Name == "" {
		return nil, fmt.Errorf("card %d: empty card name", cardID)
	}

	if img := doc.Find("img.fit").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok && src != "" {
			if full, err := joinPath(baseURLJP, src); err == nil {
				card.ImageURL = strPtr(full.String())
			} else {
				card.ImageURL = strPtr(src)
			}
		}
	}

	// Expansion code and collector number share one caption block.
	if subtext := doc.Find("div.subtext").First(); subtext.Length() > 0 {
		if regImg := subtext.Find("img.img-regulation").First(); regImg.Length() > 0 {
			if alt, ok := regImg.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
				card.ExpansionCode = strPtr(strings.TrimSpace(alt))
			}
		}
		text := strings.Join(strippedStrings(subtext), " ")
		if card.ExpansionCode != nil {
			text = strings.TrimSpace(strings.ReplaceAll(text, *card.ExpansionCode, ""))
		}
		if m := collectorRe.FindStringSubmatch(text); m != nil {
			card.CollectorNumber = strPtr(m[1] + "/" + m[2])
		}
	}

	if section := doc.Find("section.SubSection").First(); section.Length() > 0 {
		card.ExpansionName = safeText(section.Find("a.Link").First())
	}

	topInfo := doc.Find("div.TopInfo").First()
	if topInfo.Length() > 0 {
		if hpText := safeText(topInfo.Find("span.hp-num").First()); hpText != nil {
			if hp, err := strconv.Atoi(*hpText); err == nil {
				card.HP = &hp
			}
		}
		card.EvolveMarker = safeText(topInfo.Find("span.type").First())
		icon := topInfo.Find("span.hp-type + span[class*='icon-']").First()
		if icon.Length() == 0 {
			icon = topInfo.Find("span[class*='icon-']").First()
		}
		card.ElementCode = energyCodeFromIconClass(icon)
		if card.ElementCode != nil {
			// The JP page has no separate human label for the element.
			card.Element = card.ElementCode
		}
	}

	rightBox := doc.Find("div.RightBox-inner").First()
	skillIdx := 0
	if rightBox.Length() > 0 {
		var kind *string
		rightBox.Find("h2, h4").Each(func(i int, el *goquery.Selection) {
			if goquery.NodeName(el) == "h2" {
				kind = safeText(el)
				return
			}
			var cost []string
			el.Find("span[class*='icon-']").Each(func(j int, icon *goquery.Selection) {
				if code := energyCodeFromIconClass(icon); code != nil {
					cost = append(cost, *code)
				}
			})
			damage := safeText(el.Find("span.f_right").First())
			name := strPtr(jpSkillName(el))
			effect := safeTextLines(el.NextAllFiltered("p").First())
			card.Skills = append(card.Skills, Skill{
				Idx:            skillIdx,
				Kind:           kind,
				Name:           name,
				Cost:           cost,
				Damage:         damage,
				Effect:         effect,
				EffectTextNorm: normalizeEffect(effect),
			})
			skillIdx++
		})

		if table := rightBox.Find("table").First(); table.Length() > 0 {
			rows := table.Find("tr")
			if rows.Length() >= 2 {
				tds := rows.Eq(1).Find("td")
				if tds.Length() >= 1 {
					card.WeaknessCode, card.WeaknessValue = parseJPTypedCell(tds.Eq(0))
				}
				if tds.Length() >= 2 {
					card.ResistanceCode, card.ResistanceValue = parseJPTypedCell(tds.Eq(1))
				}
				if tds.Length() >= 3 {
					n := tds.Eq(2).Find("span[class*='icon-']").Length()
					card.RetreatCost = &n
				}
			}
		}
	}

	if cardDiv := doc.Find("div.card").First(); cardDiv.Length() > 0 {
		if h4 := safeText(cardDiv.Find("h4").First()); h4 != nil {
			if m := pokedexNoRe.FindStringSubmatch(*h4); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					card.PokedexNo = &n
				}
			}
		}
		ps := cardDiv.Find("p")
		ps.Each(func(i int, p *goquery.Selection) {
			text := strings.Join(strippedStrings(p), " ")
			if m := heightJPRe.FindStringSubmatch(text); m != nil {
				if f, err := strconv.ParseFloat(m[1], 64); err == nil {
					card.HeightM = &f
				}
			}
			if m := weightJPRe.FindStringSubmatch(text); m != nil {
				if f, err := strconv.ParseFloat(m[1], 64); err == nil {
					card.WeightKg = &f
				}
			}
		})
		if ps.Length() >= 2 {
			desc := strings.TrimSpace(ps.Eq(ps.Length() - 1).Text())
			if desc != "" && !strings.Contains(desc, "高さ") && !strings.Contains(desc, "重さ") {
				card.Description = &desc
			}
		}
	}

	card.Illustrator = safeText(doc.Find("div.author a").First())

	if topInfo.Length() > 0 && card.HP != nil {
		card.CardType = TypePokemon
	} else {
		var kinds []string
		for _, sk := range card.Skills {
			if sk.Kind != nil {
				kinds = append(kinds, *sk.Kind)
			}
		}
		card.CardType = classifyFromHeaders(strings.Join(kinds, " "), "エネルギー", trainerKeywordsJP)
	}

	// The JP page does not print the regulation letter; the expansion code
	// implies the era, so the mark stays empty.
	return card, nil
}

// jpSkillName is the h4 text minus the cost icons and the damage span.
func jpSkillName(el *goquery.Selection) string {
	var b strings.Builder
	for _, n := range el.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(strings.TrimSpace(c.Data))
			case html.ElementNode:
				cls := nodeAttr(c, "class")
				if strings.Contains(cls, "icon") || strings.Contains(cls, "f_right") {
					continue
				}
				b.WriteString(strings.TrimSpace(textOf(c)))
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func parseJPTypedCell(td *goquery.Selection) (code, value *string) {
	code = energyCodeFromIconClass(td.Find("span[class*='icon-']").First())
	txt := strings.TrimSpace(td.Text())
	if code != nil {
		txt = strings.TrimSpace(strings.ReplaceAll(txt, "--", ""))
		if txt == "" {
			return code, nil
		}
		return code, &txt
	}
	if txt == "" || txt == "--" {
		return nil, nil
	}
	return nil, &txt
}
