package classify_test

import (
	"net/url"
	"testing"

	"github.com/kasumi-gikai/minutes-crawler/internal/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func defaultRules() classify.Rules {
	return classify.Rules{
		Keywords: []string{"議事録", "会議録"},
		FileExts: []string{".pdf", ".docx", ".xlsx"},
		URLHints: []string{"gikai", "giji", "minutes"},
	}
}

func TestIsMinuteFile(t *testing.T) {
	rules := defaultRules()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"matching pdf extension", "https://city.example.jp/docs/report.pdf", true},
		{"matching extension different case", "https://city.example.jp/docs/report.PDF", true},
		{"unlisted extension", "https://city.example.jp/docs/report.zip", false},
		{"html never counts as a file", "https://city.example.jp/docs/report.html", false},
		{"htm never counts as a file", "https://city.example.jp/docs/report.htm", false},
		{"no extension", "https://city.example.jp/docs/report", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify.IsMinuteFile(mustParseURL(t, tt.url), rules)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLooksLikeMinute(t *testing.T) {
	rules := defaultRules()

	tests := []struct {
		name       string
		url        string
		anchorText string
		want       classify.Score
	}{
		{
			name:       "keyword in anchor text scores highest",
			url:        "https://city.example.jp/docs/2024-04.pdf",
			anchorText: "令和6年度 議事録",
			want:       classify.ScoreKeyword,
		},
		{
			name:       "url hint without keyword scores hint",
			url:        "https://city.example.jp/gikai/2024-04.pdf",
			anchorText: "資料",
			want:       classify.ScoreHint,
		},
		{
			name:       "hint match is case-insensitive",
			url:        "https://city.example.jp/GIKAI/2024-04.pdf",
			anchorText: "資料",
			want:       classify.ScoreHint,
		},
		{
			name:       "neither keyword nor hint scores none",
			url:        "https://city.example.jp/news/2024-04.pdf",
			anchorText: "お知らせ",
			want:       classify.ScoreNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify.LooksLikeMinute(mustParseURL(t, tt.url), tt.anchorText, rules)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsPayloadLink(t *testing.T) {
	rules := defaultRules()

	tests := []struct {
		name       string
		url        string
		anchorText string
		want       bool
	}{
		{
			name:       "minute file with matching hint is a payload",
			url:        "https://city.example.jp/gikai/2024-04.pdf",
			anchorText: "資料",
			want:       true,
		},
		{
			name:       "non-minute extension never a payload",
			url:        "https://city.example.jp/gikai/2024-04.html",
			anchorText: "議事録",
			want:       false,
		},
		{
			name:       "minute file with no keyword or hint is not a payload",
			url:        "https://city.example.jp/misc/report.pdf",
			anchorText: "資料",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify.IsPayloadLink(mustParseURL(t, tt.url), tt.anchorText, rules)
			assert.Equal(t, tt.want, got)
		})
	}
}
