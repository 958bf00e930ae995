package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/alfredjeanlab/cfgseed/internal/policy"
	"github.com/alfredjeanlab/cfgseed/internal/provision"
	"github.com/alfredjeanlab/cfgseed/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	PolicyVersion string    `json:"policy_version"`
	ConfigCount   int       `json:"config_count"`
	AccountCount  int       `json:"account_count"`
}

// Summary describes one export.
type Summary struct {
	ExportedAt    time.Time
	PolicyVersion string
	Configs       int
	Accounts      int
}

// Snapshot is an encoded export ready for delivery.
type Snapshot struct {
	Summary
	Data []byte
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every model config in the store as JSONL to w, ordered
// by account, sort, then ID. Settings pass through the sanitizer of p, so
// sensitive values never leave the database.
func ExportJSONL(ctx context.Context, s store.Store, p *policy.Policy, logger *slog.Logger, w io.Writer) (Summary, error) {
	configs, err := s.ListAllConfigs(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list configs: %w", err)
	}

	sort.SliceStable(configs, func(i, j int) bool {
		a, b := configs[i], configs[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		if a.Sort != b.Sort {
			return a.Sort < b.Sort
		}
		return a.ID < b.ID
	})

	sum := Summary{
		ExportedAt:    time.Now().UTC(),
		PolicyVersion: p.Version,
		Configs:       len(configs),
	}
	for i, c := range configs {
		if i == 0 || c.AccountID != configs[i-1].AccountID {
			sum.Accounts++
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       "1",
		Type:          "header",
		Timestamp:     sum.ExportedAt,
		PolicyVersion: sum.PolicyVersion,
		ConfigCount:   sum.Configs,
		AccountCount:  sum.Accounts,
	}); err != nil {
		return Summary{}, fmt.Errorf("encode header: %w", err)
	}

	sanitizer := provision.NewSanitizer(p, logger)
	for _, c := range configs {
		redacted := *c
		redacted.Settings = sanitizer.SanitizeJSON(c.Settings)
		if err := enc.Encode(record{Type: "config", Data: &redacted}); err != nil {
			return Summary{}, fmt.Errorf("encode config %s: %w", c.ID, err)
		}
	}

	return sum, nil
}

// Export runs ExportJSONL into memory.
func Export(ctx context.Context, s store.Store, p *policy.Policy, logger *slog.Logger) (*Snapshot, error) {
	var buf bytes.Buffer
	sum, err := ExportJSONL(ctx, s, p, logger, &buf)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Summary: sum, Data: buf.Bytes()}, nil
}
