package provision

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/cfgseed/internal/events"
	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/policy"
	"github.com/alfredjeanlab/cfgseed/internal/store"
)

// mockStore is an in-memory store.Store. RunInTransaction restores the
// previous state when fn fails.
type mockStore struct {
	accounts map[string]*model.Account
	configs  []*model.ModelConfig
	events   []*model.Event

	// failCreateAt, when positive, makes the Nth CreateConfig call fail.
	failCreateAt int
	createCalls  int
	ownerErr     error
	recordErr    error
	txCount      int
}

func newMockStore() *mockStore {
	return &mockStore{accounts: make(map[string]*model.Account)}
}

func (m *mockStore) CreateAccount(_ context.Context, a *model.Account) error {
	if _, ok := m.accounts[a.ID]; ok {
		return fmt.Errorf("duplicate account %s", a.ID)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *mockStore) GetAccount(_ context.Context, id string) (*model.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func (m *mockStore) FindEarliestSuperAdmin(_ context.Context) (*model.Account, error) {
	if m.ownerErr != nil {
		return nil, m.ownerErr
	}
	var admins []*model.Account
	for _, a := range m.accounts {
		if a.SuperAdmin {
			admins = append(admins, a)
		}
	}
	if len(admins) == 0 {
		return nil, nil
	}
	slices.SortFunc(admins, func(a, b *model.Account) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return admins[0], nil
}

func (m *mockStore) ListConfigsByAccount(_ context.Context, accountID string) ([]*model.ModelConfig, error) {
	var out []*model.ModelConfig
	for _, c := range m.configs {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b *model.ModelConfig) int {
		return cmp.Or(cmp.Compare(a.Sort, b.Sort), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *mockStore) CreateConfig(_ context.Context, c *model.ModelConfig) error {
	m.createCalls++
	if m.failCreateAt > 0 && m.createCalls == m.failCreateAt {
		return errors.New("insert failed")
	}
	m.configs = append(m.configs, c)
	return nil
}

func (m *mockStore) ListAllConfigs(_ context.Context) ([]*model.ModelConfig, error) {
	return slices.Clone(m.configs), nil
}

func (m *mockStore) RecordEvent(_ context.Context, e *model.Event) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	e.ID = int64(len(m.events) + 1)
	m.events = append(m.events, e)
	return nil
}

func (m *mockStore) GetEvents(_ context.Context, accountID string) ([]*model.Event, error) {
	var out []*model.Event
	for _, e := range m.events {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	m.txCount++
	accounts := make(map[string]*model.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	configs := slices.Clone(m.configs)
	evts := slices.Clone(m.events)
	if err := fn(m); err != nil {
		m.accounts, m.configs, m.events = accounts, configs, evts
		return err
	}
	return nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) configsOf(accountID string) []*model.ModelConfig {
	out, _ := m.ListConfigsByAccount(context.Background(), accountID)
	return out
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// seedOwner adds a super-admin "ac-root" owning the given templates, plus
// a target account "ac-new".
func seedOwner(m *mockStore, templates ...*model.ModelConfig) {
	m.accounts["ac-root"] = &model.Account{ID: "ac-root", Username: "root", SuperAdmin: true, CreatedAt: epoch}
	m.accounts["ac-new"] = &model.Account{ID: "ac-new", Username: "new", CreatedAt: epoch.Add(time.Hour)}
	for _, t := range templates {
		t.AccountID = "ac-root"
		m.configs = append(m.configs, t)
	}
}

func tmpl(id, category, code string, sort int, settings string) *model.ModelConfig {
	c := &model.ModelConfig{ID: id, Category: category, Code: code, Name: code, Enabled: true, Sort: sort, CreatedAt: epoch, UpdatedAt: epoch}
	if settings != "" {
		c.Settings = json.RawMessage(settings)
	}
	return c
}

func newTestProvisioner(m *mockStore, pub events.Publisher) *Provisioner {
	logger, _ := newTestLogger()
	p := New(m, policy.Static(policy.Default()), pub, logger)
	n := 0
	p.newID = func() (string, error) {
		n++
		return fmt.Sprintf("mc-copy%d", n), nil
	}
	p.now = func() time.Time { return epoch.Add(48 * time.Hour) }
	return p
}

func TestInitializeDefaultConfigs(t *testing.T) {
	m := newMockStore()
	seedOwner(m,
		tmpl("mc-01", "asr", "FunASR", 1, `{"api_key":"sk-asr","model_dir":"models/SenseVoice"}`),
		tmpl("mc-02", "asr", "UnknownASR", 2, `{"api_key":"sk-x"}`),
		tmpl("mc-03", "LLM", "MinimaxLLM", 3, `{"api_key":"sk-llm","group_id":"g1","model_name":"abab6.5s","max_tokens":500}`),
		tmpl("mc-04", "llm", "OpenAILLM", 4, ``),
		tmpl("mc-05", "memory", "mem0ai", 5, `{"api_key":"sk-mem"}`),
		tmpl("mc-06", "vad", "SileroVAD", 6, `{"threshold":0.5}`),
		tmpl("mc-07", "tts", "", 7, `{}`),
		tmpl("mc-08", "", "Orphan", 8, `{}`),
		tmpl("mc-09", "embedding", "bge", 9, `null`),
	)
	pub := &recordingPublisher{}
	p := newTestProvisioner(m, pub)

	if err := p.InitializeDefaultConfigs(context.Background(), "ac-new"); err != nil {
		t.Fatalf("InitializeDefaultConfigs: %v", err)
	}

	copies := m.configsOf("ac-new")
	var codes []string
	for _, c := range copies {
		codes = append(codes, c.Code)
	}
	wantCodes := []string{"FunASR", "MinimaxLLM", "mem0ai", "SileroVAD", "bge"}
	if !slices.Equal(codes, wantCodes) {
		t.Fatalf("copied codes = %v, want %v", codes, wantCodes)
	}

	wantSettings := map[string]string{
		"FunASR":     `{"api_key":"","model_dir":"models/SenseVoice"}`,
		"MinimaxLLM": `{"api_key":"","group_id":"","max_tokens":500,"model_name":"abab6.5s"}`,
		"mem0ai":     `{"api_key":""}`,
		"SileroVAD":  `{"threshold":0.5}`,
		"bge":        `{}`,
	}
	for _, c := range copies {
		if got := string(c.Settings); got != wantSettings[c.Code] {
			t.Errorf("%s settings = %s, want %s", c.Code, got, wantSettings[c.Code])
		}
		if !strings.HasPrefix(c.ID, "mc-copy") {
			t.Errorf("%s copy has ID %q, want a fresh ID", c.Code, c.ID)
		}
		if !c.CreatedAt.Equal(epoch.Add(48*time.Hour)) || !c.UpdatedAt.Equal(c.CreatedAt) {
			t.Errorf("%s copy timestamps = %v / %v", c.Code, c.CreatedAt, c.UpdatedAt)
		}
		if !c.Enabled || c.Name != c.Code {
			t.Errorf("%s copy fields not carried over: %+v", c.Code, c)
		}
	}
	if copies[1].Category != "LLM" || copies[1].Sort != 3 {
		t.Errorf("category and sort should be copied verbatim, got %q / %d", copies[1].Category, copies[1].Sort)
	}

	// Templates are untouched.
	if got := string(m.configsOf("ac-root")[0].Settings); got != `{"api_key":"sk-asr","model_dir":"models/SenseVoice"}` {
		t.Errorf("template settings changed: %s", got)
	}
	if len(m.configsOf("ac-root")) != 9 {
		t.Errorf("template count changed: %d", len(m.configsOf("ac-root")))
	}

	if m.txCount != 1 {
		t.Errorf("txCount = %d, want 1", m.txCount)
	}

	// One event recorded and published.
	if len(m.events) != 1 || m.events[0].Topic != events.TopicConfigsInitialized || m.events[0].AccountID != "ac-new" {
		t.Fatalf("recorded events = %+v", m.events)
	}
	var payload events.ConfigsInitialized
	if err := json.Unmarshal(m.events[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	want := events.ConfigsInitialized{AccountID: "ac-new", OwnerID: "ac-root", PolicyVersion: policy.BuiltinVersion, Templates: 9, Filtered: 4, Copied: 5}
	if payload != want {
		t.Errorf("payload = %+v, want %+v", payload, want)
	}
	if len(pub.topics) != 1 || pub.topics[0] != events.TopicConfigsInitialized {
		t.Errorf("published topics = %v", pub.topics)
	}
}

func TestInitializeDefaultConfigs_LogsCounts(t *testing.T) {
	m := newMockStore()
	seedOwner(m,
		tmpl("mc-01", "asr", "FunASR", 1, `{}`),
		tmpl("mc-02", "asr", "UnknownASR", 2, `{}`),
	)
	logger, buf := newTestLogger()
	p := New(m, policy.Static(policy.Default()), nil, logger)

	if err := p.InitializeDefaultConfigs(context.Background(), "ac-new"); err != nil {
		t.Fatalf("InitializeDefaultConfigs: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "filtered=1") || !strings.Contains(out, "copied=1") {
		t.Errorf("expected counts in log, got %q", out)
	}
	if len(m.configsOf("ac-new")) != 1 || !strings.HasPrefix(m.configsOf("ac-new")[0].ID, "mc-") {
		t.Errorf("copies = %+v", m.configsOf("ac-new"))
	}
}

func TestInitializeDefaultConfigs_NoSuperAdmin(t *testing.T) {
	m := newMockStore()
	m.accounts["ac-new"] = &model.Account{ID: "ac-new", Username: "new"}
	m.configs = append(m.configs, tmpl("mc-01", "asr", "FunASR", 1, `{}`))
	logger, buf := newTestLogger()
	pub := &recordingPublisher{}
	p := New(m, policy.Static(policy.Default()), pub, logger)

	if err := p.InitializeDefaultConfigs(context.Background(), "ac-new"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if n := len(m.configsOf("ac-new")); n != 0 {
		t.Errorf("expected no copies, got %d", n)
	}
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("expected error log, got %q", buf.String())
	}
	if len(m.events) != 0 || len(pub.topics) != 0 {
		t.Errorf("no event expected, got %d recorded / %d published", len(m.events), len(pub.topics))
	}
}

func TestInitializeDefaultConfigs_EarliestSuperAdminIsOwner(t *testing.T) {
	m := newMockStore()
	m.accounts["ac-b"] = &model.Account{ID: "ac-b", SuperAdmin: true, CreatedAt: epoch}
	m.accounts["ac-a"] = &model.Account{ID: "ac-a", SuperAdmin: true, CreatedAt: epoch.Add(time.Minute)}
	m.accounts["ac-new"] = &model.Account{ID: "ac-new"}
	m.configs = append(m.configs,
		&model.ModelConfig{ID: "mc-a", AccountID: "ac-a", Category: "vad", Code: "FromA"},
		&model.ModelConfig{ID: "mc-b", AccountID: "ac-b", Category: "vad", Code: "FromB"},
	)
	p := newTestProvisioner(m, nil)

	if err := p.InitializeDefaultConfigs(context.Background(), "ac-new"); err != nil {
		t.Fatalf("InitializeDefaultConfigs: %v", err)
	}
	copies := m.configsOf("ac-new")
	if len(copies) != 1 || copies[0].Code != "FromB" {
		t.Fatalf("copies = %+v, want the earliest super-admin's template", copies)
	}
}

func TestInitializeDefaultConfigs_NoTemplates(t *testing.T) {
	m := newMockStore()
	seedOwner(m)
	logger, buf := newTestLogger()
	p := New(m, policy.Static(policy.Default()), nil, logger)

	if err := p.InitializeDefaultConfigs(context.Background(), "ac-new"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if n := len(m.configsOf("ac-new")); n != 0 {
		t.Errorf("expected no copies, got %d", n)
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected warn log, got %q", buf.String())
	}
	if len(m.events) != 0 {
		t.Errorf("no event expected, got %+v", m.events)
	}
}

func TestInitializeDefaultConfigs_InsertFailureRollsBack(t *testing.T) {
	m := newMockStore()
	seedOwner(m,
		tmpl("mc-01", "asr", "FunASR", 1, `{}`),
		tmpl("mc-02", "llm", "MinimaxLLM", 2, `{}`),
		tmpl("mc-03", "memory", "nomem", 3, `{}`),
	)
	m.failCreateAt = 2
	pub := &recordingPublisher{}
	p := newTestProvisioner(m, pub)

	err := p.InitializeDefaultConfigs(context.Background(), "ac-new")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "insert failed") || !strings.Contains(err.Error(), "mc-02") {
		t.Errorf("error = %v, want wrapped insert failure naming the template", err)
	}
	if n := len(m.configsOf("ac-new")); n != 0 {
		t.Errorf("expected zero copies after rollback, got %d", n)
	}
	if len(m.events) != 0 || len(pub.topics) != 0 {
		t.Error("no event should be emitted for a failed run")
	}
}

func TestInitializeDefaultConfigs_OwnerLookupError(t *testing.T) {
	m := newMockStore()
	seedOwner(m, tmpl("mc-01", "asr", "FunASR", 1, `{}`))
	m.ownerErr = errors.New("connection refused")
	p := newTestProvisioner(m, nil)

	err := p.InitializeDefaultConfigs(context.Background(), "ac-new")
	if err == nil || !errors.Is(err, m.ownerErr) {
		t.Fatalf("expected wrapped owner error, got %v", err)
	}
}

func TestInitializeDefaultConfigs_MissingAccountID(t *testing.T) {
	m := newMockStore()
	p := newTestProvisioner(m, nil)

	if err := p.InitializeDefaultConfigs(context.Background(), ""); !errors.Is(err, ErrMissingAccountID) {
		t.Fatalf("expected ErrMissingAccountID, got %v", err)
	}
	if m.txCount != 0 {
		t.Error("no transaction should start for a missing account id")
	}
}

func TestInitializeDefaultConfigs_TargetIsOwner(t *testing.T) {
	m := newMockStore()
	seedOwner(m, tmpl("mc-01", "asr", "FunASR", 1, `{}`))
	p := newTestProvisioner(m, nil)

	if err := p.InitializeDefaultConfigs(context.Background(), "ac-root"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if n := len(m.configsOf("ac-root")); n != 1 {
		t.Errorf("owner config count = %d, want 1", n)
	}
}

func TestInitializeDefaultConfigs_SanitizationFailureContinues(t *testing.T) {
	m := newMockStore()
	seedOwner(m,
		tmpl("mc-01", "vad", "SileroVAD", 1, `[1,2]`),
		tmpl("mc-02", "memory", "nomem", 2, `{"token":"t"}`),
	)
	logger, buf := newTestLogger()
	p := New(m, policy.Static(policy.Default()), nil, logger)

	if err := p.InitializeDefaultConfigs(context.Background(), "ac-new"); err != nil {
		t.Fatalf("InitializeDefaultConfigs: %v", err)
	}
	copies := m.configsOf("ac-new")
	if len(copies) != 2 {
		t.Fatalf("expected 2 copies, got %d", len(copies))
	}
	if string(copies[0].Settings) != `{}` || string(copies[1].Settings) != `{"token":""}` {
		t.Errorf("settings = %s, %s", copies[0].Settings, copies[1].Settings)
	}
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("expected sanitization error log, got %q", buf.String())
	}
}

func TestInitializeDefaultConfigs_EventFailuresAreBestEffort(t *testing.T) {
	m := newMockStore()
	seedOwner(m, tmpl("mc-01", "asr", "FunASR", 1, `{}`))
	m.recordErr = errors.New("events table missing")
	pub := &recordingPublisher{err: errors.New("nats down")}
	p := newTestProvisioner(m, pub)

	if err := p.InitializeDefaultConfigs(context.Background(), "ac-new"); err != nil {
		t.Fatalf("event failures should not fail the run: %v", err)
	}
	if n := len(m.configsOf("ac-new")); n != 1 {
		t.Errorf("expected 1 copy, got %d", n)
	}
}

func TestInitializeDefaultConfigs_UsesCurrentPolicy(t *testing.T) {
	m := newMockStore()
	seedOwner(m,
		tmpl("mc-01", "asr", "FunASR", 1, `{"api_key":"k","region":"eu"}`),
		tmpl("mc-02", "asr", "DoubaoASR", 2, `{"api_key":"k","region":"eu"}`),
	)
	pol, err := policy.Parse([]byte("version = \"v9\"\nsensitive_fields = [\"region\"]\n[allow]\nasr = [\"DoubaoASR\"]\n"), "toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	logger, _ := newTestLogger()
	p := New(m, policy.Static(pol), nil, logger)

	if err := p.InitializeDefaultConfigs(context.Background(), "ac-new"); err != nil {
		t.Fatalf("InitializeDefaultConfigs: %v", err)
	}
	copies := m.configsOf("ac-new")
	if len(copies) != 1 || copies[0].Code != "DoubaoASR" {
		t.Fatalf("copies = %+v", copies)
	}
	if got := string(copies[0].Settings); got != `{"api_key":"k","region":""}` {
		t.Errorf("settings = %s", got)
	}
}

func TestInitializeWith_SharesCallerTransaction(t *testing.T) {
	m := newMockStore()
	seedOwner(m,
		tmpl("mc-01", "asr", "FunASR", 1, `{}`),
		tmpl("mc-02", "llm", "MinimaxLLM", 2, `{}`),
	)
	delete(m.accounts, "ac-new")
	p := newTestProvisioner(m, nil)

	boom := errors.New("later step failed")
	err := m.RunInTransaction(context.Background(), func(tx store.Store) error {
		if err := tx.CreateAccount(context.Background(), &model.Account{ID: "ac-new", Username: "new"}); err != nil {
			return err
		}
		res, err := p.InitializeWith(context.Background(), tx, "ac-new")
		if err != nil {
			return err
		}
		if res == nil || res.Copied != 2 {
			t.Errorf("result = %+v, want 2 copies", res)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := m.GetAccount(context.Background(), "ac-new"); !errors.Is(err, sql.ErrNoRows) {
		t.Error("account should be rolled back")
	}
	if n := len(m.configsOf("ac-new")); n != 0 {
		t.Errorf("copies should be rolled back with the account, got %d", n)
	}
	if len(m.events) != 0 {
		t.Error("InitializeWith must not emit events before commit")
	}
}

func TestInitializeWith_NilResultWhenNothingToCopy(t *testing.T) {
	m := newMockStore()
	p := newTestProvisioner(m, nil)

	res, err := p.InitializeWith(context.Background(), m, "ac-new")
	if err != nil || res != nil {
		t.Fatalf("InitializeWith = %+v, %v; want nil, nil", res, err)
	}
	p.Announce(context.Background(), res)
	if len(m.events) != 0 {
		t.Error("Announce(nil) should not record an event")
	}
}
