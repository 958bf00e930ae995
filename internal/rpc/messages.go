package rpc

import (
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/alfredjeanlab/cfgseed/internal/policy"
)

// Account is the wire form of model.Account.
type Account struct {
	ID         string                 `json:"id"`
	Username   string                 `json:"username"`
	SuperAdmin bool                   `json:"super_admin"`
	CreatedAt  *timestamppb.Timestamp `json:"created_at,omitempty"`
}

// ModelConfig is the wire form of model.ModelConfig. Settings travel as a
// google.protobuf.Struct.
type ModelConfig struct {
	ID        string                 `json:"id"`
	AccountID string                 `json:"account_id"`
	Category  string                 `json:"category"`
	Code      string                 `json:"code"`
	Name      string                 `json:"name"`
	Enabled   bool                   `json:"enabled"`
	Sort      int32                  `json:"sort"`
	Settings  *Object                `json:"settings,omitempty"`
	CreatedAt *timestamppb.Timestamp `json:"created_at,omitempty"`
	UpdatedAt *timestamppb.Timestamp `json:"updated_at,omitempty"`
}

// Event is the wire form of model.Event.
type Event struct {
	ID        int64                  `json:"id"`
	Topic     string                 `json:"topic"`
	AccountID string                 `json:"account_id"`
	Actor     string                 `json:"actor,omitempty"`
	Payload   *Object                `json:"payload,omitempty"`
	CreatedAt *timestamppb.Timestamp `json:"created_at,omitempty"`
}

type CreateAccountRequest struct {
	Username     string `json:"username"`
	SuperAdmin   bool   `json:"super_admin"`
	SkipDefaults bool   `json:"skip_defaults"`
	Actor        string `json:"actor,omitempty"`
}

type CreateAccountResponse struct {
	Account *Account `json:"account"`
	// Copied is the number of default configs seeded for the account.
	Copied int32 `json:"copied"`
}

type GetAccountRequest struct {
	ID string `json:"id"`
}

type GetAccountResponse struct {
	Account *Account `json:"account"`
}

type InitializeDefaultConfigsRequest struct {
	AccountID string `json:"account_id"`
}

type ListConfigsRequest struct {
	AccountID string `json:"account_id"`
}

type ListConfigsResponse struct {
	Configs []*ModelConfig `json:"configs"`
}

type GetEventsRequest struct {
	AccountID string `json:"account_id"`
}

type GetEventsResponse struct {
	Events []*Event `json:"events"`
}

type GetPolicyResponse struct {
	Policy *policy.Policy `json:"policy"`
}

// AccountScoped is implemented by messages that address one account.
type AccountScoped interface {
	ScopeAccountID() string
}

func (r *GetAccountRequest) ScopeAccountID() string               { return r.ID }
func (r *InitializeDefaultConfigsRequest) ScopeAccountID() string { return r.AccountID }
func (r *ListConfigsRequest) ScopeAccountID() string              { return r.AccountID }
func (r *GetEventsRequest) ScopeAccountID() string                { return r.AccountID }

func (r *CreateAccountResponse) ScopeAccountID() string {
	if r == nil || r.Account == nil {
		return ""
	}
	return r.Account.ID
}
