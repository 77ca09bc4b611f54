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
	"strings"
	"sync"
	"time"
)

// progressEvery is how many successful upserts pass between progress lines.
const progressEvery = 50

// CardStore is the persistence surface the pipeline writes through.
type CardStore interface {
	ExistingCardIDs() (map[int]struct{}, error)
	UpsertCard(card *Card) error
}

// Counters is the pipeline outcome. Fail counts not-found cards, exhausted
// retries, parse failures, and store failures alike.
type Counters struct {
	OK      int
	Skipped int
	Fail    int
}

// SyncOptions configures one pipeline run.
type SyncOptions struct {
	Lang    SiteLanguage
	BaseURL string // override for tests/stubs; empty means the official site

	// CardID, when non-zero, skips discovery and fetches one card.
	CardID int

	Params      SearchParams
	StartPage   int
	EndPage     int // 0 = up to total_pages
	Limit       int // 0 = no limit
	Workers     int
	ListWorkers int
	Delay       time.Duration

	Retries int
	Backoff time.Duration
	Timeout time.Duration

	// AllowedMarks filters parsed cards by regulation mark (upper-cased)
	// before the upsert; nil admits everything.
	AllowedMarks map[string]bool
	SkipExisting bool
	Proxies      bool
}

type fetchResult struct {
	cardID   int
	card     *Card
	notFound bool
	err      error
}

// Sync runs discovery (or a single-card override), fans detail fetches out
// across a bounded worker pool, and upserts results as they complete. A
// single card's failure never aborts the run; the store is only touched from
// this goroutine.
func Sync(ctx context.Context, st CardStore, opts SyncOptions) (Counters, error) {
	var c Counters

	cfg, err := siteFor(opts.Lang, opts.BaseURL)
	if err != nil {
		return c, err
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.ListWorkers < 1 {
		opts.ListWorkers = 8
	}
	if opts.Proxies {
		prepareProxies(cfg)
	}
	limiter := NewRateLimiter(opts.Delay)
	sessOpts := sessionOptions{
		timeout:  opts.Timeout,
		retries:  opts.Retries,
		backoff:  opts.Backoff,
		useProxy: opts.Proxies,
	}

	var cardIDs []int
	if opts.CardID != 0 {
		cardIDs = []int{opts.CardID}
	} else {
		if !cfg.supportSearch {
			return c, fmt.Errorf("%v site has no search endpoint; use a card ID", opts.Lang)
		}
		ids, totalPages, err := discoverCardIDs(ctx, cfg, limiter, discoverOptions{
			params:      opts.Params,
			startPage:   opts.StartPage,
			endPage:     opts.EndPage,
			listWorkers: opts.ListWorkers,
			session:     sessOpts,
		})
		if err != nil {
			return c, err
		}
		if totalPages > 0 {
			slog.Info(fmt.Sprintf("total pages: %d", totalPages))
		}
		cardIDs = ids
	}

	existing := map[int]struct{}{}
	if opts.SkipExisting {
		existing, err = st.ExistingCardIDs()
		if err != nil {
			return c, fmt.Errorf("read existing ids: %w", err)
		}
	}
	toFetch := make([]int, 0, len(cardIDs))
	for _, id := range cardIDs {
		if _, ok := existing[id]; ok {
			continue
		}
		toFetch = append(toFetch, id)
	}
	if opts.Limit > 0 && len(toFetch) > opts.Limit {
		toFetch = toFetch[:opts.Limit]
	}
	slog.Info(fmt.Sprintf("discovered=%d existing=%d to_fetch=%d", len(cardIDs), len(existing), len(toFetch)))
	if len(toFetch) == 0 {
		return c, nil
	}

	jobs := make(chan int)
	results := make(chan fetchResult, opts.Workers)

	var wg sync.WaitGroup
	workers := opts.Workers
	if workers > len(toFetch) {
		workers = len(toFetch)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := newSession(cfg, limiter, sessOpts)
			for id := range jobs {
				results <- fetchOne(ctx, s, cfg, id)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, id := range toFetch {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	// Upserts happen here, on the completion stream, so the store has a
	// single writer.
	for res := range results {
		switch {
		case res.err != nil:
			c.Fail++
			slog.With("card_id", res.cardID).Error(fmt.Sprintf("fetch failed: %v", res.err))
		case res.notFound:
			c.Fail++
			slog.With("card_id", res.cardID).Error("redirected to list (card not found)")
		default:
			if opts.AllowedMarks != nil && !markAllowed(opts.AllowedMarks, res.card.RegulationMark) {
				c.Skipped++
				continue
			}
			if err := st.UpsertCard(res.card); err != nil {
				c.Fail++
				slog.With("card_id", res.cardID).Error(fmt.Sprintf("upsert failed: %v", err))
				continue
			}
			c.OK++
			if c.OK%progressEvery == 0 {
				slog.Info(fmt.Sprintf("[ok] %d/%d", c.OK, len(toFetch)))
			}
		}
	}
	return c, nil
}

func fetchOne(ctx context.Context, s *Session, cfg siteConfig, cardID int) fetchResult {
	body, notFound, err := fetchDetail(ctx, s, cfg, cardID)
	if err != nil {
		return fetchResult{cardID: cardID, err: err}
	}
	if notFound {
		return fetchResult{cardID: cardID, notFound: true}
	}
	card, err := parseDetailDoc(cfg, cardID, body)
	if err != nil {
		return fetchResult{cardID: cardID, err: err}
	}
	return fetchResult{cardID: cardID, card: card}
}

func markAllowed(allowed map[string]bool, mark *string) bool {
	if mark == nil {
		return false
	}
	return allowed[strings.ToUpper(strings.TrimSpace(*mark))]
}
