package llm

import (
	"reflect"
	"testing"
)

func TestExtractInstructions(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    []map[string]any
	}{
		{
			name:    "plain array",
			content: `[{"step":"抽卡"}]`,
			want:    []map[string]any{{"step": "抽卡"}},
		},
		{
			name:    "single object becomes one-element list",
			content: `{"step":"抽卡"}`,
			want:    []map[string]any{{"step": "抽卡"}},
		},
		{
			name:    "json wrapped in prose",
			content: "以下是結果：\n```json\n[{\"step\":\"抽卡\"}]\n```",
			want:    []map[string]any{{"step": "抽卡"}},
		},
		{
			name:    "bare strings become steps",
			content: `["抽卡","棄牌"]`,
			want:    []map[string]any{{"step": "抽卡"}, {"step": "棄牌"}},
		},
		{
			name:    "garbage yields empty list",
			content: "sorry, I can't",
			want:    []map[string]any{},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := extractInstructions(c.content)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}
