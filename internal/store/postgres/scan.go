package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/cfgseed/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanAccount scans a single row into a model.Account.
// The row must contain columns in the order defined by accountColumns.
func scanAccount(row scannable) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Username, &a.SuperAdmin, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// scanConfig scans a single row into a model.ModelConfig.
// The row must contain columns in the order defined by configColumns.
func scanConfig(row scannable) (*model.ModelConfig, error) {
	var c model.ModelConfig
	var settings []byte
	err := row.Scan(
		&c.ID,
		&c.AccountID,
		&c.Category,
		&c.Code,
		&c.Name,
		&c.Enabled,
		&c.Sort,
		&settings,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		c.Settings = json.RawMessage(settings)
	}
	return &c, nil
}

// scanConfigs scans multiple rows into a slice of model.ModelConfig pointers.
func scanConfigs(rows *sql.Rows) ([]*model.ModelConfig, error) {
	var configs []*model.ModelConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &e.AccountID, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
