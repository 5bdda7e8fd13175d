package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandTerms(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{"single known token", []string{"ai"}, []string{"agent", "llm", "gpt", "ml", "model"}},
		{"unknown token", []string{"gardening"}, nil},
		{"empty", nil, nil},
		{"long query skipped", []string{"ai", "db", "js"}, nil},
		{"dedupes against query", []string{"js", "node"}, []string{"javascript", "typescript"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandTerms(tt.tokens))
		})
	}
}
