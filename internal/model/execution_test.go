package model

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		max     int
		want    string
	}{
		{name: "short payload unchanged", payload: "write a tagline", max: 500, want: "write a tagline"},
		{name: "exactly max unchanged", payload: strings.Repeat("a", 10), max: 10, want: strings.Repeat("a", 10)},
		{name: "truncated with ellipsis", payload: strings.Repeat("b", 20), max: 10, want: strings.Repeat("b", 10) + "..."},
		{name: "zero max defaults to 500", payload: strings.Repeat("c", 600), max: 0, want: strings.Repeat("c", 500) + "..."},
		{name: "empty payload", payload: "", max: 100, want: ""},
		{name: "cut mid-rune backs up", payload: "héllo world", max: 2, want: "h..."},
		{name: "cut on rune boundary kept", payload: "héllo world", max: 3, want: "hé..."},
		{name: "multi-byte run stays valid", payload: strings.Repeat("é", 10), max: 5, want: "éé..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Summarize(tt.payload, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestTaskTypeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Content Generation", TaskContentGeneration.Label())
	assert.Equal(t, "Research Report", TaskResearchReport.Label())
	assert.Equal(t, "custom_thing", TaskType("custom_thing").Label())
}

func TestDepthValid(t *testing.T) {
	t.Parallel()

	assert.True(t, DepthQuick.Valid())
	assert.True(t, DepthStandard.Valid())
	assert.True(t, DepthComprehensive.Valid())
	assert.False(t, Depth("extreme").Valid())
	assert.False(t, Depth("").Valid())
}
