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
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/oliverwang1107/PTCG-deck-analyze/effects"
)

var (
	pokedexNoRe = regexp.MustCompile(`No\.(\d+)`)
	numericRe   = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)`)
	spaceRunRe  = regexp.MustCompile(`\s+`)
)

var trainerKeywordsTW = []string{"訓練家", "物品", "支援者", "場地", "寶可夢道具"}

// fetchDetail GETs a card's detail page following redirects. A final URL
// landing back on the list path means the card does not exist; that case is
// reported through the notFound flag, not as an error.
func fetchDetail(ctx context.Context, s *Session, cfg siteConfig, cardID int) (body []byte, notFound bool, err error) {
	data, finalURL, err := s.get(ctx, cfg.detailURL(cardID), nil)
	if err != nil {
		return nil, false, err
	}
	if cfg.detailNotFound(cfg, finalURL) {
		return nil, true, nil
	}
	return data, false, nil
}

func parseDetailDoc(cfg siteConfig, cardID int, body []byte) (*Card, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse detail html: %v", err)
	}
	return cfg.parseDetail(cardID, cfg.detailURL(cardID), doc)
}

// parseDetailTW maps the Traditional Chinese detail page onto the card
// record. The selector set is the stable parsing contract for this locale.
func parseDetailTW(cardID int, sourceURL string, doc *goquery.Document) (*Card, error) {
	card := &Card{
		CardID:    cardID,
		SourceURL: sourceURL,
		FetchedAt: utcNow(),
	}

	h1 := doc.Find("h1.pageHeader.cardDetail").First()
	if h1.Length() == 0 {
		return nil, fmt.Errorf("card %d: no detail heading", cardID)
	}
	card.EvolveMarker = safeText(h1.Find("span.evolveMarker").First())
	parts := strippedStrings(h1)
	if card.EvolveMarker != nil && len(parts) > 0 && parts[0] == *card.EvolveMarker {
		parts = parts[1:]
	}
	card.Name = strings.TrimSpace(strings.Join(parts, ""))
	if card.Name == "" {
		return nil, fmt.Errorf("card %d: empty card name", cardID)
	}

	if img := doc.Find("section.imageColumn img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok {
			card.ImageURL = strPtr(src)
		}
	}

	mainInfo := doc.Find("p.mainInfomation").First()
	if mainInfo.Length() > 0 {
		if hpText := safeText(mainInfo.Find("span.number").First()); hpText != nil {
			if hp, err := strconv.Atoi(*hpText); err == nil {
				card.HP = &hp
			}
		}
		card.Element = safeText(mainInfo.Find("span.type").First())
		if src, ok := mainInfo.Find("img").First().Attr("src"); ok {
			card.ElementCode = energyCodeFromSrc(src)
		}
	}

	skillIdx := 0
	doc.Find("div.skillInformation").Each(func(i int, block *goquery.Selection) {
		kind := safeText(block.Find("h3.commonHeader").First())
		block.Find("div.skill").Each(func(j int, sk *goquery.Selection) {
			effect := safeTextLines(sk.Find("p.skillEffect").First())
			var cost []string
			sk.Find("span.skillCost img").Each(func(k int, img *goquery.Selection) {
				src, _ := img.Attr("src")
				if code := energyCodeFromSrc(src); code != nil {
					cost = append(cost, *code)
				}
			})
			card.Skills = append(card.Skills, Skill{
				Idx:            skillIdx,
				Kind:           kind,
				Name:           safeText(sk.Find("span.skillName").First()),
				Cost:           cost,
				Damage:         safeText(sk.Find("span.skillDamage").First()),
				Effect:         effect,
				EffectTextNorm: normalizeEffect(effect),
			})
			skillIdx++
		})
	})

	sub := doc.Find("div.subInformation").First()
	if sub.Length() > 0 {
		card.WeaknessCode, card.WeaknessValue = parseTypedCell(sub.Find("td.weakpoint").First())
		card.ResistanceCode, card.ResistanceValue = parseTypedCell(sub.Find("td.resist").First())
		if escape := sub.Find("td.escape"); escape.Length() > 0 {
			// Zero icons means free retreat; that is still a value.
			n := escape.Find("img").Length()
			card.RetreatCost = &n
		}
	}

	expansion := doc.Find("section.expansionColumn").First()
	if expansion.Length() > 0 {
		if src, ok := expansion.Find("span.expansionSymbol img").First().Attr("src"); ok {
			card.ExpansionSymbolURL = strPtr(src)
		}
		card.RegulationMark = safeText(expansion.Find("span.alpha").First())
		card.CollectorNumber = safeText(expansion.Find("span.collectorNumber").First())
	}

	if link := doc.Find("section.expansionLinkColumn a[href]").First(); link.Length() > 0 {
		card.ExpansionName = safeText(link)
		if href, ok := link.Attr("href"); ok {
			if u, err := url.Parse(href); err == nil {
				if codes := u.Query()["expansionCodes"]; len(codes) > 0 {
					card.ExpansionCode = strPtr(codes[0])
				}
			}
		}
	}

	card.Illustrator = safeText(doc.Find("div.illustrator a").First())

	extra := doc.Find("div.extraInformation").First()
	if extra.Length() > 0 {
		if h3 := safeText(extra.Find("h3").First()); h3 != nil {
			if m := pokedexNoRe.FindStringSubmatch(*h3); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					card.PokedexNo = &n
				}
			}
		}
		values := extra.Find("p.size span.value")
		if values.Length() >= 1 {
			card.HeightM = parseNumeric(values.Eq(0))
		}
		if values.Length() >= 2 {
			card.WeightKg = parseNumeric(values.Eq(1))
		}
		card.Description = safeTextLines(extra.Find("p.discription").First())
	}

	if mainInfo.Length() > 0 {
		card.CardType = TypePokemon
	} else {
		card.CardType = classifyFromHeaders(cardHeaders(doc), "能量", trainerKeywordsTW)
	}
	return card, nil
}

func cardHeaders(doc *goquery.Document) string {
	var headers []string
	doc.Find("div.skillInformation h3.commonHeader").Each(func(i int, h *goquery.Selection) {
		if t := safeText(h); t != nil {
			headers = append(headers, *t)
		}
	})
	return strings.Join(headers, " ")
}

// classifyFromHeaders decides trainer/energy from the concatenated section
// header text; no richer fallback is attempted, unknown is a valid result.
func classifyFromHeaders(headerText, energyKeyword string, trainerKeywords []string) string {
	if strings.Contains(headerText, energyKeyword) {
		return TypeEnergy
	}
	for _, k := range trainerKeywords {
		if strings.Contains(headerText, k) {
			return TypeTrainer
		}
	}
	return TypeUnknown
}

// parseTypedCell reads a weakness/resistance cell: the code comes from the
// icon image, the value is the remaining text. The "--" placeholder means
// no value.
func parseTypedCell(td *goquery.Selection) (code, value *string) {
	if td == nil || td.Length() == 0 {
		return nil, nil
	}
	if src, ok := td.Find("img").First().Attr("src"); ok {
		code = energyCodeFromSrc(src)
	}
	txt := strings.TrimSpace(spaceRunRe.ReplaceAllString(strings.Join(strippedStrings(td), " "), " "))
	if code != nil {
		txt = strings.TrimSpace(strings.ReplaceAll(txt, *code, ""))
	}
	if txt == "" || txt == "--" {
		return code, nil
	}
	return code, &txt
}

func parseNumeric(sel *goquery.Selection) *float64 {
	t := safeText(sel)
	if t == nil {
		return nil
	}
	m := numericRe.FindStringSubmatch(*t)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &f
}

func normalizeEffect(effect *string) *string {
	if effect == nil {
		return nil
	}
	return strPtr(effects.Normalize(*effect))
}
