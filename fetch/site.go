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

// Package fetch retrieves card data from the official card-search sites and
// turns detail pages into normalized card records.
package fetch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"
)

type SiteLanguage language.Tag

func (s SiteLanguage) String() string {
	return language.Tag(s).String()
}

var (
	Taiwanese SiteLanguage = SiteLanguage(language.TraditionalChinese)
	Japanese  SiteLanguage = SiteLanguage(language.Japanese)
)

// ParseSiteLanguage maps a user-supplied language string to a supported site.
func ParseSiteLanguage(lang string) (SiteLanguage, error) {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "tw", "zh", "zh-tw", "zh-hant":
		return Taiwanese, nil
	case "jp", "ja":
		return Japanese, nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return SiteLanguage{}, fmt.Errorf("invalid language %q: %v", lang, err)
	}
	base, _ := tag.Base()
	switch base.String() {
	case "zh":
		return Taiwanese, nil
	case "ja":
		return Japanese, nil
	}
	return SiteLanguage{}, fmt.Errorf("unsupported site language: %v", lang)
}

type siteConfig struct {
	baseURL        string
	listPath       string
	detailPathFunc func(cardID int) string
	detailIDRe     *regexp.Regexp
	headers        map[string]string
	supportSearch  bool
	// detailNotFound reports whether the final URL after redirects means the
	// card does not exist.
	detailNotFound func(cfg siteConfig, finalURL string) bool
	parseDetail    func(cardID int, sourceURL string, doc *goquery.Document) (*Card, error)
}

func (c siteConfig) listURL() string {
	return c.baseURL + c.listPath
}

func (c siteConfig) detailURL(cardID int) string {
	return c.baseURL + c.detailPathFunc(cardID)
}

const (
	baseURLTW = "https://asia.pokemon-card.com"
	baseURLJP = "https://www.pokemon-card.com"
)

var siteConfigs = map[string]siteConfig{
	Taiwanese.String(): {
		baseURL:  baseURLTW,
		listPath: "/tw/card-search/list/",
		detailPathFunc: func(cardID int) string {
			return fmt.Sprintf("/tw/card-search/detail/%d/", cardID)
		},
		detailIDRe: regexp.MustCompile(`/tw/card-search/detail/(\d+)/`),
		headers: map[string]string{
			"User-Agent":      "ptcg-tw-localdb/0.1 (+https://example.invalid)",
			"Accept-Language": "zh-TW,zh;q=0.9,en;q=0.3",
		},
		supportSearch: true,
		detailNotFound: func(cfg siteConfig, finalURL string) bool {
			// Missing cards get redirected to the list page; the comparison
			// trims trailing slashes on both sides.
			return strings.HasSuffix(
				strings.TrimRight(finalURL, "/"),
				strings.TrimRight(cfg.listPath, "/"),
			)
		},
		parseDetail: parseDetailTW,
	},
	Japanese.String(): {
		baseURL:  baseURLJP,
		listPath: "/card-search/",
		detailPathFunc: func(cardID int) string {
			return fmt.Sprintf("/card-search/details.php/card/%d/regu/ALL", cardID)
		},
		detailIDRe: regexp.MustCompile(`/card-search/details\.php/card/(\d+)/`),
		headers: map[string]string{
			"User-Agent":      "ptcg-jp-localdb/0.1 (+https://example.invalid)",
			"Accept-Language": "ja,en;q=0.3",
		},
		supportSearch: false,
		detailNotFound: func(cfg siteConfig, finalURL string) bool {
			return !strings.Contains(finalURL, "details.php") && !strings.Contains(finalURL, "detail")
		},
		parseDetail: parseDetailJP,
	},
}

func siteFor(lang SiteLanguage, baseURL string) (siteConfig, error) {
	if lang == (SiteLanguage{}) {
		lang = Taiwanese
	}
	cfg, ok := siteConfigs[lang.String()]
	if !ok {
		return siteConfig{}, fmt.Errorf("unsupported site language: %v", lang)
	}
	if baseURL != "" {
		cfg.baseURL = strings.TrimRight(baseURL, "/")
	}
	return cfg, nil
}
