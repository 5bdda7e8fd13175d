package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		answer string
		want   Intent
	}{
		{"empty query", "", "", IntentEmpty},
		{"whitespace only", "   ", "", IntentEmpty},
		{"specific query", "kubernetes operators guide", "", IntentExplicit},
		{"generic only", "ai", "", IntentAmbiguous},
		{"generic plural", "tools", "", IntentAmbiguous},
		{"generic plus specific", "ai newsletter", "", IntentExplicit},
		{"temporal", "latest articles", "", IntentAmbiguous},
		{"deictic", "that one site", "", IntentAmbiguous},
		{"answer forces explicit", "ai", "prompt engineering", IntentExplicit},
		{"multiple generics", "ai apps", "", IntentAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyIntent(tt.query, tt.answer))
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"a b cd", []string{"cd"}},
		{"  (openai)  api.  ", []string{"openai", "api"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tokenize(tt.in))
	}
}
