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
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// SearchParams is the upstream search form. The server keeps the criteria
// in a session cookie established by the seeding POST, so paging GETs reuse
// the same jar.
type SearchParams struct {
	Keyword    string
	CardType   string // all|1(pokemon)|2(trainers)|3(energy)
	Regulation string // all|1|2|3
}

// CardTypeParam maps the CLI spelling of a card type to the upstream form
// value.
func CardTypeParam(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all":
		return "all"
	case "pokemon":
		return "1"
	case "trainer", "trainers":
		return "2"
	case "energy":
		return "3"
	}
	return v
}

func (p SearchParams) form() url.Values {
	cardType := p.CardType
	if cardType == "" {
		cardType = "all"
	}
	regulation := p.Regulation
	if regulation == "" {
		regulation = "all"
	}
	return url.Values{
		"keyword":    {p.Keyword},
		"cardType":   {cardType},
		"regulation": {regulation},
	}
}

var (
	digitsRe = regexp.MustCompile(`\d+`)
	pageNoRe = regexp.MustCompile(`[?&]pageNo=(\d+)`)
)

// extractCardIDs applies the detail-path regex across a list page body,
// preserving first-occurrence order and dropping duplicates.
func extractCardIDs(cfg siteConfig, html string) []int {
	var ids []int
	seen := map[int]bool{}
	for _, m := range cfg.detailIDRe.FindAllStringSubmatch(html, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// extractTotalPages reads the total page count from the result header, or
// falls back to the largest pageNo on the pagination anchors. Returns 0 when
// neither is present.
func extractTotalPages(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}
	if node := doc.Find("p.resultTotalPages").First(); node.Length() > 0 {
		digits := digitsRe.FindAllString(node.Text(), -1)
		if len(digits) > 0 {
			if n, err := strconv.Atoi(digits[len(digits)-1]); err == nil {
				return n
			}
		}
	}
	maxPage := 0
	doc.Find("nav.pagination a[href]").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if m := pageNoRe.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxPage {
				maxPage = n
			}
		}
	})
	return maxPage
}

// startSearch POSTs the search form to the list endpoint. The response body
// is page 1; the server binds the criteria to the session cookie.
func startSearch(ctx context.Context, s *Session, cfg siteConfig, params SearchParams) (string, int, error) {
	body, _, err := s.postForm(ctx, cfg.listURL(), params.form())
	if err != nil {
		return "", 0, fmt.Errorf("seed search: %w", err)
	}
	html := string(body)
	return html, extractTotalPages(html), nil
}

func fetchListPage(ctx context.Context, s *Session, cfg siteConfig, pageNo int) (string, error) {
	body, _, err := s.get(ctx, cfg.listURL(), url.Values{"pageNo": {strconv.Itoa(pageNo)}})
	if err != nil {
		return "", fmt.Errorf("list page %d: %w", pageNo, err)
	}
	return string(body), nil
}

type discoverOptions struct {
	params      SearchParams
	startPage   int
	endPage     int // 0 = up to totalPages (or startPage when unknown)
	listWorkers int
	session     sessionOptions
}

// discoverCardIDs runs the seed POST and fans list-page fetches out over a
// bounded pool. Results are collected by page index so the emitted sequence
// follows page order no matter which page finishes first; IDs are
// de-duplicated across the whole run in first-occurrence order. Returns the
// ordered IDs and the reported total page count (0 when unknown).
func discoverCardIDs(ctx context.Context, cfg siteConfig, limiter *RateLimiter, opts discoverOptions) ([]int, int, error) {
	jar := newCookieJar()
	sessOpts := opts.session
	sessOpts.jar = jar
	seed := newSession(cfg, limiter, sessOpts)

	html1, totalPages, err := startSearch(ctx, seed, cfg, opts.params)
	if err != nil {
		return nil, 0, err
	}

	startPage := opts.startPage
	if startPage < 1 {
		startPage = 1
	}
	endPage := opts.endPage
	if endPage == 0 && totalPages > 0 {
		endPage = totalPages
	}
	if endPage == 0 {
		endPage = startPage
	}

	var ids []int
	if startPage == 1 {
		ids = extractCardIDs(cfg, html1)
		slog.Info(fmt.Sprintf("list page 1/%d: +%d ids", endPage, len(ids)))
	}

	firstPage := startPage
	if startPage == 1 {
		firstPage = 2
	}
	if firstPage <= endPage {
		pages := make([]int, 0, endPage-firstPage+1)
		for p := firstPage; p <= endPage; p++ {
			pages = append(pages, p)
		}
		pageIDs := make([][]int, len(pages))

		workers := opts.listWorkers
		if workers < 1 {
			workers = 1
		}
		if workers > len(pages) {
			workers = len(pages)
		}
		jobs := make(chan int)
		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < workers; w++ {
			g.Go(func() error {
				s := newSession(cfg, limiter, sessionOptions{
					jar:      jar,
					timeout:  sessOpts.timeout,
					retries:  sessOpts.retries,
					backoff:  sessOpts.backoff,
					useProxy: sessOpts.useProxy,
				})
				for i := range jobs {
					html, err := fetchListPage(gctx, s, cfg, pages[i])
					if err != nil {
						return err
					}
					pageIDs[i] = extractCardIDs(cfg, html)
					slog.Info(fmt.Sprintf("list page %d/%d: +%d ids", pages[i], endPage, len(pageIDs[i])))
				}
				return nil
			})
		}
		feed := func() {
			defer close(jobs)
			for i := range pages {
				select {
				case jobs <- i:
				case <-gctx.Done():
					return
				}
			}
		}
		feed()
		if err := g.Wait(); err != nil {
			return nil, totalPages, err
		}
		for _, pids := range pageIDs {
			ids = append(ids, pids...)
		}
	}

	// De-duplicate across pages, keeping first-occurrence order.
	seen := map[int]bool{}
	unique := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique, totalPages, nil
}
