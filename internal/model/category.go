package model

import "strings"

// Category classifies a model config by the kind of engine it configures.
// Categories are an open set; the constants below are the ones with known
// provisioning rules.
type Category string

const (
	CategoryASR        Category = "asr"
	CategoryLLM        Category = "llm"
	CategoryTTS        Category = "tts"
	CategoryMemory     Category = "memory"
	CategoryVAD        Category = "vad"
	CategoryIntent     Category = "intent"
	CategoryVLLM       Category = "vllm"
	CategoryVoiceprint Category = "voiceprint"
)

// ParseCategory normalizes a raw category string to lower case.
func ParseCategory(s string) Category {
	return Category(strings.ToLower(s))
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// Rule identifies how configs of a category are selected for new accounts.
type Rule int

const (
	// RuleUnknown applies to categories without a known rule.
	RuleUnknown Rule = iota
	// RuleAllowList copies only codes on the category's allow-list.
	RuleAllowList
	// RuleAlways copies every code.
	RuleAlways
)

// String returns the rule name used in logs.
func (r Rule) String() string {
	switch r {
	case RuleAllowList:
		return "allow_list"
	case RuleAlways:
		return "always"
	default:
		return "unknown"
	}
}

// Rule returns the provisioning rule for the category. The category must
// already be normalized with ParseCategory.
func (c Category) Rule() Rule {
	switch c {
	case CategoryASR, CategoryLLM, CategoryTTS:
		return RuleAllowList
	case CategoryMemory, CategoryVAD, CategoryIntent, CategoryVLLM, CategoryVoiceprint:
		return RuleAlways
	default:
		return RuleUnknown
	}
}

// AllowListCategories returns the categories governed by an allow-list.
func AllowListCategories() []Category {
	return []Category{CategoryASR, CategoryLLM, CategoryTTS}
}
