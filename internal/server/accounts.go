package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/cfgseed/internal/events"
	"github.com/alfredjeanlab/cfgseed/internal/idgen"
	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/provision"
	"github.com/alfredjeanlab/cfgseed/internal/store"
)

// createAccountInput holds the fields for creating an account.
type createAccountInput struct {
	Username     string `json:"username"`
	SuperAdmin   bool   `json:"super_admin"`
	SkipDefaults bool   `json:"skip_defaults"`
	Actor        string `json:"actor,omitempty"`
}

// createAccount persists a new account and, unless SkipDefaults is set, seeds
// its default model configs in the same transaction. Returns inputError for
// validation failures.
func (s *Server) createAccount(ctx context.Context, in createAccountInput) (*model.Account, *provision.Result, error) {
	id, err := idgen.Account()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ID: %w", err)
	}
	acct := &model.Account{
		ID:         id,
		Username:   in.Username,
		SuperAdmin: in.SuperAdmin,
	}
	if err := model.ValidateAccount(acct); err != nil {
		return nil, nil, inputError("invalid account: " + err.Error())
	}

	var res *provision.Result
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreateAccount(ctx, acct); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		if in.SkipDefaults {
			return nil
		}
		r, err := s.provisioner.InitializeWith(ctx, tx, acct.ID)
		res = r
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.recordAndPublish(ctx, events.TopicAccountCreated, acct.ID, in.Actor, events.AccountCreated{
		Account:      acct,
		SkipDefaults: in.SkipDefaults,
	})
	s.provisioner.Announce(ctx, res)

	return acct, res, nil
}

func (s *Server) getAccount(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, inputError("account id is required")
	}
	acct, err := s.store.GetAccount(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// initializeDefaultConfigs seeds default configs for an existing account.
func (s *Server) initializeDefaultConfigs(ctx context.Context, id string) error {
	if _, err := s.getAccount(ctx, id); err != nil {
		return err
	}
	return s.provisioner.InitializeDefaultConfigs(ctx, id)
}

// listConfigs returns an account's model configs with sensitive settings
// blanked. Stored records are not modified.
func (s *Server) listConfigs(ctx context.Context, id string) ([]*model.ModelConfig, error) {
	if _, err := s.getAccount(ctx, id); err != nil {
		return nil, err
	}
	configs, err := s.store.ListConfigsByAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}

	sanitizer := provision.NewSanitizer(s.policy.Current(), s.logger)
	out := make([]*model.ModelConfig, 0, len(configs))
	for _, c := range configs {
		redacted := *c
		redacted.Settings = sanitizer.SanitizeJSON(c.Settings)
		out = append(out, &redacted)
	}
	return out, nil
}

func (s *Server) getEvents(ctx context.Context, id string) ([]*model.Event, error) {
	if id == "" {
		return nil, inputError("account id is required")
	}
	evts, err := s.store.GetEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	return evts, nil
}
