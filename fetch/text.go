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
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// strippedStrings collects every non-empty text node under sel, trimmed, in
// document order.
func strippedStrings(sel *goquery.Selection) []string {
	if sel == nil {
		return nil
	}
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				if t := strings.TrimSpace(c.Data); t != "" {
					parts = append(parts, t)
				}
				continue
			}
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return parts
}

// safeText joins the element's text nodes with single spaces; nil when the
// selection is empty or has no text.
func safeText(sel *goquery.Selection) *string {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	return strPtr(strings.Join(strippedStrings(sel), " "))
}

// safeTextLines joins the element's text nodes with newlines, one node per
// line.
func safeTextLines(sel *goquery.Selection) *string {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	return strPtr(strings.Join(strippedStrings(sel), "\n"))
}

// energyCodeFromSrc derives an energy code from the filename stem of a
// type-icon image URL.
func energyCodeFromSrc(src string) *string {
	if src == "" {
		return nil
	}
	u, err := url.Parse(src)
	if err != nil {
		return nil
	}
	_, file := path.Split(u.Path)
	stem := strings.Split(file, ".")[0]
	return strPtr(stem)
}

func joinPath(baseURL, subPath string) (*url.URL, error) {
	b, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	sp, err := url.Parse(subPath)
	if err != nil {
		return nil, err
	}
	return b.ResolveReference(sp), nil
}
