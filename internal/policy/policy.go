// Package policy holds the curated lists that drive account provisioning:
// the per-category allow-lists of default model codes and the settings keys
// treated as credentials. Policies are plain data so they can be versioned
// and reloaded from a file without redeploying.
package policy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alfredjeanlab/cfgseed/internal/model"
)

// BuiltinVersion is the version reported by Default.
const BuiltinVersion = "builtin"

// Policy is a provisioning policy. Build one with Default or Load; the zero
// value allows nothing and redacts nothing.
type Policy struct {
	Version         string              `json:"version" toml:"version" yaml:"version"`
	Allow           map[string][]string `json:"allow" toml:"allow" yaml:"allow"`
	SensitiveFields []string            `json:"sensitive_fields" toml:"sensitive_fields" yaml:"sensitive_fields"`

	allow     map[model.Category]map[string]struct{}
	sensitive map[string]struct{}
}

var defaultAllow = map[model.Category][]string{
	model.CategoryASR: {"FunASR", "FunASRServer", "TencentASR"},
	model.CategoryLLM: {"MinimaxLLM"},
	model.CategoryTTS: {"MinimaxStreamTTS"},
}

// defaultSensitiveFields lists every spelling seen in stored settings.
// Matching is exact, so each naming variant must appear.
var defaultSensitiveFields = []string{
	"api_key", "apiKey", "apikey",
	"access_token", "accessToken", "access_key", "accessKey",
	"secret_key", "secretKey", "secret",
	"password", "passwd", "pwd",
	"token", "appid", "app_id", "group_id", "groupId",
	"url", "base_url", "baseUrl", "endpoint",
	"account", "username", "user",
	"host", "server",
}

// Default returns the built-in policy.
func Default() *Policy {
	p := &Policy{
		Version:         BuiltinVersion,
		Allow:           make(map[string][]string, len(defaultAllow)),
		SensitiveFields: slices.Clone(defaultSensitiveFields),
	}
	for cat, codes := range defaultAllow {
		p.Allow[string(cat)] = slices.Clone(codes)
	}
	p.compile()
	return p
}

// withDefaults fills sections missing from a loaded file with the built-in
// values and lower-cases category keys. A category present with an empty
// list stays empty. Validate must run first so duplicate keys are rejected
// before they collapse.
func (p *Policy) withDefaults() {
	if p.Version == "" {
		p.Version = "unversioned"
	}
	if len(p.SensitiveFields) == 0 {
		p.SensitiveFields = slices.Clone(defaultSensitiveFields)
	}
	normalized := make(map[string][]string, len(p.Allow))
	for cat, codes := range p.Allow {
		normalized[string(model.ParseCategory(cat))] = codes
	}
	for cat, codes := range defaultAllow {
		if _, ok := normalized[string(cat)]; !ok {
			normalized[string(cat)] = slices.Clone(codes)
		}
	}
	p.Allow = normalized
}

// Validate reports entries that cannot be honored.
func (p *Policy) Validate() error {
	var problems []string
	seen := make(map[model.Category]string, len(p.Allow))
	for cat, codes := range p.Allow {
		norm := model.ParseCategory(cat)
		if prev, dup := seen[norm]; dup {
			a, b := min(prev, cat), max(prev, cat)
			problems = append(problems, fmt.Sprintf("allow: categories %q and %q both name %s", a, b, norm))
		}
		seen[norm] = cat
		if norm.Rule() != model.RuleAllowList {
			problems = append(problems, fmt.Sprintf("allow: category %q is not allow-list governed", cat))
		}
		for _, code := range codes {
			if strings.TrimSpace(code) == "" {
				problems = append(problems, fmt.Sprintf("allow.%s: empty code", cat))
			}
		}
	}
	for i, f := range p.SensitiveFields {
		if strings.TrimSpace(f) == "" {
			problems = append(problems, fmt.Sprintf("sensitive_fields[%d]: empty field name", i))
		}
	}
	if len(problems) > 0 {
		slices.Sort(problems)
		return fmt.Errorf("invalid policy: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (p *Policy) compile() {
	p.allow = make(map[model.Category]map[string]struct{}, len(p.Allow))
	for cat, codes := range p.Allow {
		set := make(map[string]struct{}, len(codes))
		for _, code := range codes {
			set[code] = struct{}{}
		}
		p.allow[model.ParseCategory(cat)] = set
	}
	p.sensitive = make(map[string]struct{}, len(p.SensitiveFields))
	for _, f := range p.SensitiveFields {
		p.sensitive[f] = struct{}{}
	}
}

// AllowsCode reports whether code is on the allow-list of category.
// category must be normalized; code matching is exact.
func (p *Policy) AllowsCode(category model.Category, code string) bool {
	_, ok := p.allow[category][code]
	return ok
}

// IsSensitive reports whether key names a credential-like settings field.
func (p *Policy) IsSensitive(key string) bool {
	_, ok := p.sensitive[key]
	return ok
}

// Source supplies the policy in effect.
type Source interface {
	Current() *Policy
}

type staticSource struct {
	p *Policy
}

func (s staticSource) Current() *Policy { return s.p }

// Static returns a Source that always yields p.
func Static(p *Policy) Source {
	return staticSource{p: p}
}
