package events

import (
	"context"

	"github.com/alfredjeanlab/cfgseed/internal/model"
)

// Event topic constants
const (
	TopicAccountCreated     = "cfgseed.account.created"
	TopicConfigsInitialized = "cfgseed.configs.initialized"
	TopicPolicyReloaded     = "cfgseed.policy.reloaded"

	// TopicAll matches every cfgseed topic.
	TopicAll = "cfgseed.>"
)

// HeaderAccountID carries the account an event concerns, so consumers can
// route on it without decoding the payload.
const HeaderAccountID = "Cfgseed-Account-Id"

// AccountScoped is implemented by events that concern a single account.
type AccountScoped interface {
	EventAccountID() string
}

// accountOf returns the account an event concerns, or "".
func accountOf(event any) string {
	if s, ok := event.(AccountScoped); ok {
		return s.EventAccountID()
	}
	return ""
}

type AccountCreated struct {
	Account      *model.Account `json:"account"`
	SkipDefaults bool           `json:"skip_defaults,omitempty"`
}

func (e AccountCreated) EventAccountID() string {
	if e.Account == nil {
		return ""
	}
	return e.Account.ID
}

// ConfigsInitialized reports a completed default-config run for one account.
type ConfigsInitialized struct {
	AccountID     string `json:"account_id"`
	OwnerID       string `json:"owner_id"`
	PolicyVersion string `json:"policy_version"`
	Templates     int    `json:"templates"`
	Filtered      int    `json:"filtered"`
	Copied        int    `json:"copied"`
}

func (e ConfigsInitialized) EventAccountID() string { return e.AccountID }

type PolicyReloaded struct {
	Version string `json:"version"`
	Path    string `json:"path,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
