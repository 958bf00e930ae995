package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/alfredjeanlab/cfgseed/internal/model"
)

// Object is a free-form JSON object carried as a google.protobuf.Struct.
// It encodes with protojson so it can sit inside the plain Go messages.
type Object struct {
	*structpb.Struct
}

func (o Object) MarshalJSON() ([]byte, error) {
	if o.Struct == nil {
		return []byte("null"), nil
	}
	return protojson.Marshal(o.Struct)
}

func (o *Object) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		o.Struct = nil
		return nil
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(data, st); err != nil {
		return err
	}
	o.Struct = st
	return nil
}

// ObjectFromJSON converts a raw JSON object. Empty input yields nil.
func ObjectFromJSON(raw json.RawMessage) (*Object, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("settings must be a JSON object: %w", err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return &Object{Struct: st}, nil
}

// JSON returns the object as compact JSON with sorted keys. Numbers come
// back as float64, as google.protobuf.Value defines them.
func (o *Object) JSON() (json.RawMessage, error) {
	if o == nil || o.Struct == nil {
		return nil, nil
	}
	return json.Marshal(o.AsMap())
}

func toTimestamp(t time.Time) *timestamppb.Timestamp {
	if t.IsZero() {
		return nil
	}
	return timestamppb.New(t)
}

func fromTimestamp(ts *timestamppb.Timestamp) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.AsTime()
}

func AccountToProto(a *model.Account) *Account {
	if a == nil {
		return nil
	}
	return &Account{
		ID:         a.ID,
		Username:   a.Username,
		SuperAdmin: a.SuperAdmin,
		CreatedAt:  toTimestamp(a.CreatedAt),
	}
}

func AccountFromProto(a *Account) *model.Account {
	if a == nil {
		return nil
	}
	return &model.Account{
		ID:         a.ID,
		Username:   a.Username,
		SuperAdmin: a.SuperAdmin,
		CreatedAt:  fromTimestamp(a.CreatedAt),
	}
}

func ConfigToProto(c *model.ModelConfig) (*ModelConfig, error) {
	settings, err := ObjectFromJSON(c.Settings)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", c.ID, err)
	}
	return &ModelConfig{
		ID:        c.ID,
		AccountID: c.AccountID,
		Category:  c.Category,
		Code:      c.Code,
		Name:      c.Name,
		Enabled:   c.Enabled,
		Sort:      int32(c.Sort),
		Settings:  settings,
		CreatedAt: toTimestamp(c.CreatedAt),
		UpdatedAt: toTimestamp(c.UpdatedAt),
	}, nil
}

func ConfigFromProto(c *ModelConfig) (*model.ModelConfig, error) {
	settings, err := c.Settings.JSON()
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", c.ID, err)
	}
	return &model.ModelConfig{
		ID:        c.ID,
		AccountID: c.AccountID,
		Category:  c.Category,
		Code:      c.Code,
		Name:      c.Name,
		Enabled:   c.Enabled,
		Sort:      int(c.Sort),
		Settings:  settings,
		CreatedAt: fromTimestamp(c.CreatedAt),
		UpdatedAt: fromTimestamp(c.UpdatedAt),
	}, nil
}

func EventToProto(e *model.Event) (*Event, error) {
	payload, err := ObjectFromJSON(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", e.ID, err)
	}
	return &Event{
		ID:        e.ID,
		Topic:     e.Topic,
		AccountID: e.AccountID,
		Actor:     e.Actor,
		Payload:   payload,
		CreatedAt: toTimestamp(e.CreatedAt),
	}, nil
}

func EventFromProto(e *Event) (*model.Event, error) {
	payload, err := e.Payload.JSON()
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", e.ID, err)
	}
	return &model.Event{
		ID:        e.ID,
		Topic:     e.Topic,
		AccountID: e.AccountID,
		Actor:     e.Actor,
		Payload:   payload,
		CreatedAt: fromTimestamp(e.CreatedAt),
	}, nil
}
