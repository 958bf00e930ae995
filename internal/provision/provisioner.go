package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/cfgseed/internal/events"
	"github.com/alfredjeanlab/cfgseed/internal/idgen"
	"github.com/alfredjeanlab/cfgseed/internal/logging"
	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/policy"
	"github.com/alfredjeanlab/cfgseed/internal/store"
)

// ErrMissingAccountID is returned when no target account is given.
var ErrMissingAccountID = errors.New("target account id is required")

// Result summarizes one run that copied templates.
type Result struct {
	AccountID     string
	OwnerID       string
	PolicyVersion string
	Templates     int
	Filtered      int
	Copied        int
	Configs       []*model.ModelConfig
}

// Provisioner copies the template owner's eligible model configs to a
// target account.
type Provisioner struct {
	store     store.Store
	policy    policy.Source
	publisher events.Publisher
	logger    *slog.Logger

	now   func() time.Time
	newID func() (string, error)
}

// New creates a Provisioner. A nil publisher disables event publishing.
func New(s store.Store, src policy.Source, pub events.Publisher, logger *slog.Logger) *Provisioner {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &Provisioner{
		store:     s,
		policy:    src,
		publisher: pub,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     idgen.ModelConfig,
	}
}

// InitializeDefaultConfigs copies the eligible templates to accountID in a
// single transaction. A missing template owner or an owner without
// templates is logged and is not an error. Any insert failure rolls back
// every copy made by the run.
func (p *Provisioner) InitializeDefaultConfigs(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrMissingAccountID
	}

	var res *Result
	err := p.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		res, err = p.initialize(ctx, tx, accountID)
		return err
	})
	if err != nil {
		return err
	}
	p.Announce(ctx, res)
	return nil
}

// InitializeWith runs the copy inside st. When st is a transaction store the
// caller's transaction is reused, so the copies commit or roll back with the
// caller's other writes. The caller calls Announce after committing.
// A nil Result means nothing was copied.
func (p *Provisioner) InitializeWith(ctx context.Context, st store.Store, accountID string) (*Result, error) {
	if accountID == "" {
		return nil, ErrMissingAccountID
	}
	var res *Result
	err := st.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		res, err = p.initialize(ctx, tx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Provisioner) initialize(ctx context.Context, tx store.Store, accountID string) (*Result, error) {
	pol := p.policy.Current()
	log := logging.WithAccount(p.logger, accountID)

	owner, err := tx.FindEarliestSuperAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("find template owner: %w", err)
	}
	if owner == nil {
		log.Error("no super-admin account found, skipping default configs")
		return nil, nil
	}
	if owner.ID == accountID {
		log.Info("target account is the template owner, skipping default configs")
		return nil, nil
	}

	templates, err := tx.ListConfigsByAccount(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list templates of %s: %w", owner.ID, err)
	}
	if len(templates) == 0 {
		log.Warn("template owner has no model configs", "owner_id", owner.ID)
		return nil, nil
	}

	filter := NewFilter(pol, log)
	sanitizer := NewSanitizer(pol, log)
	res := &Result{
		AccountID:     accountID,
		OwnerID:       owner.ID,
		PolicyVersion: pol.Version,
		Templates:     len(templates),
	}

	for _, t := range templates {
		verdict := filter.Classify(t)
		if !verdict.Copy() {
			res.Filtered++
			log.Debug("template not copied", "config_id", t.ID, "category", t.Category, "code", t.Code, "verdict", verdict.String())
			continue
		}

		id, err := p.newID()
		if err != nil {
			return nil, fmt.Errorf("generate config id: %w", err)
		}
		now := p.now()
		c := &model.ModelConfig{
			ID:        id,
			AccountID: accountID,
			Category:  t.Category,
			Code:      t.Code,
			Name:      t.Name,
			Enabled:   t.Enabled,
			Sort:      t.Sort,
			Settings:  sanitizer.SanitizeJSON(t.Settings),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateConfig(ctx, c); err != nil {
			return nil, fmt.Errorf("copy template %s to %s: %w", t.ID, accountID, err)
		}
		res.Copied++
		res.Configs = append(res.Configs, c)
	}
	return res, nil
}

// Announce logs a committed run and records and publishes its event.
// Failures are logged and do not affect the run. A nil res is ignored.
func (p *Provisioner) Announce(ctx context.Context, res *Result) {
	if res == nil {
		return
	}
	p.logger.Info("default model configs initialized",
		"account_id", res.AccountID,
		"owner_id", res.OwnerID,
		"policy_version", res.PolicyVersion,
		"filtered", res.Filtered,
		"copied", res.Copied)

	payload := events.ConfigsInitialized{
		AccountID:     res.AccountID,
		OwnerID:       res.OwnerID,
		PolicyVersion: res.PolicyVersion,
		Templates:     res.Templates,
		Filtered:      res.Filtered,
		Copied:        res.Copied,
	}
	ev, err := model.NewEvent(events.TopicConfigsInitialized, res.AccountID, "", payload)
	if err != nil {
		p.logger.Error("encode event", "topic", events.TopicConfigsInitialized, "error", err)
		return
	}
	if err := p.store.RecordEvent(ctx, ev); err != nil {
		p.logger.Error("record event", "topic", ev.Topic, "account_id", res.AccountID, "error", err)
	}
	if err := p.publisher.Publish(ctx, events.TopicConfigsInitialized, payload); err != nil {
		p.logger.Error("publish event", "topic", ev.Topic, "account_id", res.AccountID, "error", err)
	}
}
