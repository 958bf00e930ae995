package sync

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/store"
)

// mockStore is a minimal in-memory store for sync tests.
type mockStore struct {
	configs []*model.ModelConfig
	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{}
}

func (m *mockStore) CreateAccount(context.Context, *model.Account) error {
	return errors.New("not implemented")
}

func (m *mockStore) GetAccount(context.Context, string) (*model.Account, error) {
	return nil, sql.ErrNoRows
}

func (m *mockStore) FindEarliestSuperAdmin(context.Context) (*model.Account, error) {
	return nil, nil
}

func (m *mockStore) ListConfigsByAccount(_ context.Context, accountID string) ([]*model.ModelConfig, error) {
	var out []*model.ModelConfig
	for _, c := range m.configs {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) CreateConfig(_ context.Context, c *model.ModelConfig) error {
	m.configs = append(m.configs, c)
	return nil
}

func (m *mockStore) ListAllConfigs(context.Context) ([]*model.ModelConfig, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*model.ModelConfig, len(m.configs))
	copy(out, m.configs)
	return out, nil
}

func (m *mockStore) RecordEvent(context.Context, *model.Event) error { return nil }

func (m *mockStore) GetEvents(context.Context, string) ([]*model.Event, error) { return nil, nil }

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }
