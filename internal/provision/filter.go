// Package provision seeds a new account with default model configs cloned
// from the template owner, the earliest-created super-admin.
package provision

import (
	"log/slog"

	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/policy"
)

// Verdict is the outcome of classifying one template.
type Verdict int

const (
	// VerdictUnclassifiable: the template has no category or no code.
	VerdictUnclassifiable Verdict = iota
	// VerdictAllowListed: an allow-list category and the code is listed.
	VerdictAllowListed
	// VerdictNotAllowListed: an allow-list category and the code is not listed.
	VerdictNotAllowListed
	// VerdictAlways: a category whose configs are always copied.
	VerdictAlways
	// VerdictUnknownCategory: a category with no known rule. Copied.
	VerdictUnknownCategory
)

// Copy reports whether a template with this verdict is copied.
func (v Verdict) Copy() bool {
	switch v {
	case VerdictAllowListed, VerdictAlways, VerdictUnknownCategory:
		return true
	default:
		return false
	}
}

func (v Verdict) String() string {
	switch v {
	case VerdictUnclassifiable:
		return "unclassifiable"
	case VerdictAllowListed:
		return "allow_listed"
	case VerdictNotAllowListed:
		return "not_allow_listed"
	case VerdictAlways:
		return "always"
	case VerdictUnknownCategory:
		return "unknown_category"
	default:
		return "invalid"
	}
}

// Filter decides which templates are copied to a new account.
type Filter struct {
	policy *policy.Policy
	logger *slog.Logger
}

// NewFilter returns a Filter bound to one policy snapshot.
func NewFilter(p *policy.Policy, logger *slog.Logger) *Filter {
	return &Filter{policy: p, logger: logger}
}

// Classify returns the verdict for t. Category matching is case-insensitive;
// code matching is exact.
func (f *Filter) Classify(t *model.ModelConfig) Verdict {
	if t.Category == "" || t.Code == "" {
		return VerdictUnclassifiable
	}
	cat := model.ParseCategory(t.Category)
	switch cat.Rule() {
	case model.RuleAllowList:
		if f.policy.AllowsCode(cat, t.Code) {
			return VerdictAllowListed
		}
		return VerdictNotAllowListed
	case model.RuleAlways:
		return VerdictAlways
	default:
		f.logger.Warn("unexpected model config category, copying",
			"config_id", t.ID, "category", t.Category, "code", t.Code)
		return VerdictUnknownCategory
	}
}

// ShouldCopy reports whether t is eligible for copying.
func (f *Filter) ShouldCopy(t *model.ModelConfig) bool {
	return f.Classify(t).Copy()
}
