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

// Package llm turns skill effect text into structured instruction JSON via
// the OpenRouter chat API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"
)

const (
	DefaultModel   = "anthropic/claude-3.5-sonnet"
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	requestTimeout = 60 * time.Second
)

const systemPrompt = "你是結構化解析器，輸入是寶可夢卡牌的招式/特性文字（繁中）。" +
	"請輸出 JSON array，每個元素是一個步驟/指令：" +
	`{ "step": "簡短描述", "condition": "觸發條件或前提，若沒有留空字串", "action": "要做的動作", ` +
	`"result": "造成的結果或影響", "notes": "其他補充(可省略)" }。` +
	"不要加入解釋文字，只輸出 JSON。"

var jsonValueRe = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)

// Client calls the OpenRouter chat-completions endpoint.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewClient builds a client from explicit values, falling back to the
// OPENROUTER_API_KEY and OPENROUTER_BASE_URL environment variables.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is not set")
	}
	if baseURL == "" {
		baseURL = os.Getenv("OPENROUTER_BASE_URL")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// StructureEffect asks the model to decompose one effect text. The result is
// the instruction array re-serialized to compact JSON, ready to persist.
func (c *Client) StructureEffect(ctx context.Context, model, text string, temperature float64) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openrouter status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	instructions := extractInstructions(cr.Choices[0].Message.Content)
	out, err := json.Marshal(instructions)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// extractInstructions pulls the first JSON value out of the model output and
// coerces it to a list of instruction objects. Bare strings become
// single-step objects; anything unparseable yields an empty list.
func extractInstructions(content string) []map[string]any {
	var value any
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		m := jsonValueRe.FindString(content)
		if m == "" {
			return []map[string]any{}
		}
		if err := json.Unmarshal([]byte(m), &value); err != nil {
			return []map[string]any{}
		}
	}
	switch v := value.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			switch it := item.(type) {
			case map[string]any:
				out = append(out, it)
			case string:
				out = append(out, map[string]any{"step": it})
			}
		}
		return out
	}
	return []map[string]any{}
}
