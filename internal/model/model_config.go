package model

import (
	"encoding/json"
	"time"
)

// ModelConfig is one engine configuration (an ASR, LLM, TTS, ... backend)
// belonging to an account. Settings is a free-form JSON object holding the
// implementation-specific parameters, stored as JSONB.
type ModelConfig struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Category  string          `json:"category"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Enabled   bool            `json:"enabled"`
	Sort      int             `json:"sort"`
	Settings  json.RawMessage `json:"settings,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
