package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/store"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// accountColumns is the column list used for SELECT statements on the accounts table.
const accountColumns = `id, username, super_admin, created_at`

// configColumns is the column list used for SELECT statements on the model_configs table.
const configColumns = `id, account_id, category, code, name, enabled, sort,
	settings, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateAccount(ctx context.Context, db executor, a *model.Account) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, username, super_admin)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		a.ID, a.Username, a.SuperAdmin,
	).Scan(&a.CreatedAt)
	return translateError(err)
}

func queryGetAccount(ctx context.Context, db executor, id string) (*model.Account, error) {
	row := db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func queryFindEarliestSuperAdmin(ctx context.Context, db executor) (*model.Account, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE super_admin
		ORDER BY created_at ASC, id ASC
		LIMIT 1`)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func queryListConfigsByAccount(ctx context.Context, db executor, accountID string) ([]*model.ModelConfig, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+configColumns+`
		FROM model_configs
		WHERE account_id = $1
		ORDER BY sort ASC, id ASC`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

func queryCreateConfig(ctx context.Context, db executor, c *model.ModelConfig) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO model_configs (
			id, account_id, category, code, name, enabled, sort,
			settings, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10
		)`,
		c.ID,
		c.AccountID,
		c.Category,
		c.Code,
		c.Name,
		c.Enabled,
		c.Sort,
		jsonbBytes(c.Settings),
		c.CreatedAt,
		c.UpdatedAt,
	)
	return translateError(err)
}

// translateError maps driver errors onto store sentinels.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrConflict, pqErr.Message)
	}
	return err
}

func queryListAllConfigs(ctx context.Context, db executor) ([]*model.ModelConfig, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+configColumns+`
		FROM model_configs
		ORDER BY account_id, sort ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, account_id, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Topic, e.AccountID, nullString(e.Actor), jsonbBytes(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryGetEvents(ctx context.Context, db executor, accountID string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, account_id, actor, payload, created_at
		FROM events
		WHERE account_id = $1
		ORDER BY created_at ASC, id ASC`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
