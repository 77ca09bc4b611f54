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

// Package effects normalizes skill/ability text and splits it into smaller
// instruction units for downstream refinement.
package effects

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	spaceTabRe   = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{2,}`)
	strongStopRe = regexp.MustCompile(`[。；;]\s*|\n+`)
)

// Connective phrases that often join two actions inside one clause.
var connectors = []string{"若", "如果", "則", "接著", "然後", "此外"}

// Normalize collapses whitespace: carriage returns become newlines, runs of
// spaces and tabs become one space, and blank-line runs become one newline.
func Normalize(text string) string {
	t := strings.ReplaceAll(text, "\r", "\n")
	t = spaceTabRe.ReplaceAllString(t, " ")
	t = blankLinesRe.ReplaceAllString(t, "\n")
	return strings.TrimSpace(t)
}

// SplitInstructions breaks effect text into actionable units. Heuristic, not
// perfect; it produces smaller pieces for the LLM pass to refine.
func SplitInstructions(text string) []string {
	t := Normalize(text)
	if t == "" {
		return nil
	}

	parts := strongStopRe.Split(t, -1)

	var refined []string
	for _, p := range parts {
		p = strings.Trim(p, " 。；;")
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) <= 12 {
			refined = append(refined, p)
			continue
		}
		for _, c := range splitOnConnectors(p) {
			c = strings.Trim(c, " ，")
			if c != "" {
				refined = append(refined, c)
			}
		}
	}

	// Drop consecutive duplicates.
	var cleaned []string
	last := ""
	for _, r := range refined {
		r = strings.TrimSpace(r)
		if r == "" || r == last {
			continue
		}
		cleaned = append(cleaned, r)
		last = r
	}
	return cleaned
}

// splitOnConnectors cuts at each "，" that is directly followed by a
// connector phrase.
func splitOnConnectors(p string) []string {
	const comma = "，"
	var out []string
	start := 0
	for i := 0; i < len(p); {
		if strings.HasPrefix(p[i:], comma) {
			rest := p[i+len(comma):]
			for _, c := range connectors {
				if strings.HasPrefix(rest, c) {
					out = append(out, p[start:i])
					start = i + len(comma)
					break
				}
			}
		}
		_, size := utf8.DecodeRuneInString(p[i:])
		i += size
	}
	out = append(out, p[start:])
	return out
}
