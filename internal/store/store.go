package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/cfgseed/internal/model"
)

// ErrConflict is returned when a write violates a uniqueness constraint,
// such as creating an account with a username that is already taken.
var ErrConflict = errors.New("conflict")

// Store defines the persistence interface for accounts and their model configs.
// Lookups of a single record return sql.ErrNoRows when it does not exist.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	// FindEarliestSuperAdmin returns the first super-admin by creation order,
	// or nil with a nil error when there is none.
	FindEarliestSuperAdmin(ctx context.Context) (*model.Account, error)

	// Model configs
	ListConfigsByAccount(ctx context.Context, accountID string) ([]*model.ModelConfig, error) // ordered by sort, then id
	CreateConfig(ctx context.Context, config *model.ModelConfig) error
	ListAllConfigs(ctx context.Context) ([]*model.ModelConfig, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, accountID string) ([]*model.Event, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
