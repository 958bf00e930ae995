package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the audit record of something that happened to an account. The
// same payload is published on the bus under Topic.
type Event struct {
	ID        int64           `json:"id"`
	Topic     string          `json:"topic"`
	AccountID string          `json:"account_id"`
	Actor     string          `json:"actor,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent encodes payload into an unsaved Event. ID and CreatedAt are set
// by the store.
func NewEvent(topic, accountID, actor string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	return &Event{Topic: topic, AccountID: accountID, Actor: actor, Payload: data}, nil
}

// DecodePayload unmarshals the payload into v.
func (e *Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %d (%s) has no payload", e.ID, e.Topic)
	}
	return json.Unmarshal(e.Payload, v)
}
