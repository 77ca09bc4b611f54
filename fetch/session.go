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
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/Akenaide/biri"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
	defaultBackoff = 1 * time.Second
)

// Statuses worth another attempt; everything else in 4xx/5xx is fatal for
// the request.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

type sessionOptions struct {
	jar      http.CookieJar
	timeout  time.Duration
	retries  int
	backoff  time.Duration
	useProxy bool
}

// Session is one worker's HTTP state: a client with default headers, a
// cookie jar shared or private, and the retry policy. Workers each own a
// Session so connection pools are reused for the whole run.
type Session struct {
	client  *http.Client
	headers map[string]string
	limiter *RateLimiter
	timeout time.Duration
	retries int
	backoff time.Duration
	jar     http.CookieJar
	proxy   *biri.Proxy
}

func newCookieJar() http.CookieJar {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		// cookiejar.New only fails on a nil options misuse.
		panic(fmt.Sprintf("cookiejar: %v", err))
	}
	return jar
}

func newSession(cfg siteConfig, limiter *RateLimiter, opts sessionOptions) *Session {
	if opts.timeout <= 0 {
		opts.timeout = defaultTimeout
	}
	if opts.retries <= 0 {
		opts.retries = defaultRetries
	}
	if opts.backoff <= 0 {
		opts.backoff = defaultBackoff
	}
	if opts.jar == nil {
		opts.jar = newCookieJar()
	}
	s := &Session{
		headers: cfg.headers,
		limiter: limiter,
		timeout: opts.timeout,
		retries: opts.retries,
		backoff: opts.backoff,
		jar:     opts.jar,
	}
	if opts.useProxy {
		s.proxy = biri.GetClient()
		s.proxy.Client.Jar = s.jar
		s.proxy.Client.Timeout = s.timeout
		s.client = s.proxy.Client
	} else {
		s.client = &http.Client{Timeout: s.timeout, Jar: s.jar}
	}
	return s
}

// prepareProxies points the proxy pool at the target site. Call once before
// any proxied Session is created.
func prepareProxies(cfg siteConfig) {
	biri.Config.PingServer = cfg.baseURL
	biri.Config.TickMinuteDuration = 1
	biri.Config.Timeout = 25
	biri.ProxyStart()
}

func (s *Session) banProxy() {
	if s.proxy == nil {
		return
	}
	s.proxy.Ban()
	s.proxy = biri.GetClient()
	s.proxy.Client.Jar = s.jar
	s.proxy.Client.Timeout = s.timeout
	s.client = s.proxy.Client
}

func (s *Session) get(ctx context.Context, rawURL string, query url.Values) ([]byte, string, error) {
	return s.request(ctx, http.MethodGet, rawURL, query, nil)
}

func (s *Session) postForm(ctx context.Context, rawURL string, form url.Values) ([]byte, string, error) {
	return s.request(ctx, http.MethodPost, rawURL, nil, form)
}

// request performs one HTTP exchange with the shared limiter invoked before
// every attempt, so back-off and rate-limit delays compose. It returns the
// body and the final URL after redirects.
func (s *Session) request(ctx context.Context, method, rawURL string, query, form url.Values) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url %q: %v", rawURL, err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.backoff * (1 << (attempt - 1)))
		}
		s.limiter.Wait()

		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
		if err != nil {
			return nil, "", err
		}
		for k, v := range s.headers {
			req.Header.Set(k, v)
		}
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			slog.With("url", u.String()).Debug("request error", "error", err, "attempt", attempt)
			s.banProxy()
			lastErr = err
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		finalURL := resp.Request.URL.String()

		if retryStatuses[resp.StatusCode] {
			slog.With("url", u.String()).Debug("retriable status", "status", resp.StatusCode, "attempt", attempt)
			s.banProxy()
			lastErr = fmt.Errorf("status %d for %s", resp.StatusCode, u)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, u)
		}
		if readErr != nil {
			s.banProxy()
			lastErr = readErr
			continue
		}
		if s.proxy != nil {
			s.proxy.Readd()
		}
		return data, finalURL, nil
	}
	return nil, "", fmt.Errorf("request failed after %d attempts: %w", s.retries, lastErr)
}
