package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.True(t, s.SemanticEnabled)
	assert.True(t, s.ClarifyOnLowConfidence)
	assert.InDelta(t, 0.72, s.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 30, s.RetentionDays)

	sum := s.Weights.Lexical + s.Weights.Semantic + s.Weights.Taxonomy + s.Weights.Recency
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestMergeRemotePreservesSecrets(t *testing.T) {
	local := &Settings{
		EmbeddingURL:    "http://localhost:11434",
		EmbeddingAPIKey: "local-embed-key",
		RemoteURL:       "https://sync.example.com",
		RemoteAPIKey:    "local-remote-key",
		RetentionDays:   30,
	}
	remote := &Settings{
		SemanticEnabled: true,
		RetentionDays:   14,
		EmbeddingURL:    "https://leaked.example.com",
		EmbeddingAPIKey: "remote-key",
		UpdatedAt:       time.Now(),
	}

	local.MergeRemote(remote)

	assert.Equal(t, 14, local.RetentionDays)
	assert.True(t, local.SemanticEnabled)
	assert.Equal(t, "http://localhost:11434", local.EmbeddingURL)
	assert.Equal(t, "local-embed-key", local.EmbeddingAPIKey)
	assert.Equal(t, "https://sync.example.com", local.RemoteURL)
	assert.Equal(t, "local-remote-key", local.RemoteAPIKey)
}
