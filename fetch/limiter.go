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
	"sync"
	"time"
)

// RateLimiter spaces outbound requests so that consecutive Wait calls are
// separated by at least a minimum interval. One instance is shared by every
// worker; there is no burst credit.
type RateLimiter struct {
	interval time.Duration
	mu       sync.Mutex
	nextOK   time.Time
}

// NewRateLimiter returns a limiter enforcing the given minimum interval
// between requests. A non-positive interval disables the limiter.
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	if minInterval < 0 {
		minInterval = 0
	}
	return &RateLimiter{interval: minInterval}
}

// Wait blocks until at least the minimum interval has elapsed since the
// previous Wait completed, then reserves the next slot. Callers are
// serialized; each sleeps on its own slot while holding the lock.
func (l *RateLimiter) Wait() {
	if l.interval <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if now.Before(l.nextOK) {
		time.Sleep(l.nextOK.Sub(now))
	}
	if l.nextOK.After(now) {
		l.nextOK = l.nextOK.Add(l.interval)
	} else {
		l.nextOK = now.Add(l.interval)
	}
}
