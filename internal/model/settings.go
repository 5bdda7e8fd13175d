package model

import "time"

// Weights are the configured ranking signal weights. They are normalized to
// sum to 1 at query time; raw values here may be any non-negative numbers.
type Weights struct {
	Lexical  float64 `json:"lexical" yaml:"lexical"`
	Semantic float64 `json:"semantic" yaml:"semantic"`
	Taxonomy float64 `json:"taxonomy" yaml:"taxonomy"`
	Recency  float64 `json:"recency" yaml:"recency"`
}

// Settings are the user-tunable knobs consumed by the ranking engine, the
// background jobs, and the sync reconciler. A single row, synced remotely;
// secret fields are always preserved from the local copy on pull.
type Settings struct {
	SemanticEnabled        bool    `json:"semantic_enabled"`
	WebAugmentEnabled      bool    `json:"web_augment_enabled"`
	ClarifyOnLowConfidence bool    `json:"clarify_on_low_confidence"`
	ConfidenceThreshold    float64 `json:"confidence_threshold"`
	Weights                Weights `json:"weights"`

	RetentionDays int `json:"retention_days"`

	EmbeddingProvider string `json:"embedding_provider,omitempty"`
	EmbeddingModel    string `json:"embedding_model,omitempty"`
	EmbeddingURL      string `json:"embedding_url,omitempty"`     // secret: never overwritten by pull
	EmbeddingAPIKey   string `json:"embedding_api_key,omitempty"` // secret: never overwritten by pull

	RemoteURL    string `json:"remote_url,omitempty"`    // secret: never overwritten by pull
	RemoteAPIKey string `json:"remote_api_key,omitempty"` // secret: never overwritten by pull
	UserID       string `json:"user_id,omitempty"`

	// ReclassifyDone marks the one-shot reclassify-to-type migration as
	// permanently finished so it never re-runs.
	ReclassifyDone bool `json:"reclassify_done"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSettings returns the out-of-the-box configuration.
func DefaultSettings() *Settings {
	return &Settings{
		SemanticEnabled:        true,
		WebAugmentEnabled:      false,
		ClarifyOnLowConfidence: true,
		ConfidenceThreshold:    0.72,
		Weights:                Weights{Lexical: 0.35, Semantic: 0.30, Taxonomy: 0.20, Recency: 0.15},
		RetentionDays:          30,
	}
}

// MergeRemote applies a remote settings row on top of the local one,
// shallowly, preserving local secrets (API keys and endpoint URLs).
func (s *Settings) MergeRemote(remote *Settings) {
	embedURL, embedKey := s.EmbeddingURL, s.EmbeddingAPIKey
	remoteURL, remoteKey := s.RemoteURL, s.RemoteAPIKey

	*s = *remote

	s.EmbeddingURL, s.EmbeddingAPIKey = embedURL, embedKey
	s.RemoteURL, s.RemoteAPIKey = remoteURL, remoteKey
}
