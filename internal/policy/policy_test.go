package policy

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/alfredjeanlab/cfgseed/internal/model"
)

func TestDefault(t *testing.T) {
	p := Default()
	if p.Version != BuiltinVersion {
		t.Errorf("Version = %q, want %q", p.Version, BuiltinVersion)
	}

	tests := []struct {
		cat  model.Category
		code string
		want bool
	}{
		{model.CategoryASR, "FunASR", true},
		{model.CategoryASR, "FunASRServer", true},
		{model.CategoryASR, "TencentASR", true},
		{model.CategoryASR, "UnknownASR", false},
		{model.CategoryASR, "funasr", false},
		{model.CategoryLLM, "MinimaxLLM", true},
		{model.CategoryLLM, "OpenAILLM", false},
		{model.CategoryTTS, "MinimaxStreamTTS", true},
		{model.CategoryTTS, "EdgeTTS", false},
		{model.CategoryMemory, "FunASR", false},
	}
	for _, tt := range tests {
		if got := p.AllowsCode(tt.cat, tt.code); got != tt.want {
			t.Errorf("AllowsCode(%s, %q) = %v, want %v", tt.cat, tt.code, got, tt.want)
		}
	}

	wantSensitive := []string{
		"api_key", "apiKey", "apikey",
		"access_token", "accessToken", "access_key", "accessKey",
		"secret_key", "secretKey", "secret",
		"password", "passwd", "pwd",
		"token", "appid", "app_id", "group_id", "groupId",
		"url", "base_url", "baseUrl", "endpoint",
		"account", "username", "user",
		"host", "server",
	}
	if !slices.Equal(p.SensitiveFields, wantSensitive) {
		t.Errorf("SensitiveFields = %v, want %v", p.SensitiveFields, wantSensitive)
	}
	for _, key := range []string{"api_key", "apiKey", "apikey", "password", "host", "server", "groupId"} {
		if !p.IsSensitive(key) {
			t.Errorf("IsSensitive(%q) = false, want true", key)
		}
	}
	for _, key := range []string{"API_KEY", "model_name", "temperature", ""} {
		if p.IsSensitive(key) {
			t.Errorf("IsSensitive(%q) = true, want false", key)
		}
	}
}

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Allow["asr"][0] = "Changed"
	a.SensitiveFields[0] = "changed"

	b := Default()
	if b.Allow["asr"][0] != "FunASR" {
		t.Errorf("Default shares allow-list storage: got %q", b.Allow["asr"][0])
	}
	if b.SensitiveFields[0] != "api_key" {
		t.Errorf("Default shares sensitive list storage: got %q", b.SensitiveFields[0])
	}
}

func TestZeroPolicy(t *testing.T) {
	var p Policy
	if p.AllowsCode(model.CategoryASR, "FunASR") {
		t.Error("zero policy allows FunASR")
	}
	if p.IsSensitive("api_key") {
		t.Error("zero policy treats api_key as sensitive")
	}
}

func TestParseTOML(t *testing.T) {
	doc := `
version = "2024-06"
sensitive_fields = ["api_key", "private_key"]

[allow]
asr = ["DoubaoASR"]
LLM = ["MinimaxLLM", "ChatGLMLLM"]
`
	p, err := Parse([]byte(doc), "toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Version != "2024-06" {
		t.Errorf("Version = %q, want 2024-06", p.Version)
	}
	if !p.AllowsCode(model.CategoryASR, "DoubaoASR") {
		t.Error("expected DoubaoASR allowed")
	}
	if p.AllowsCode(model.CategoryASR, "FunASR") {
		t.Error("file asr list should replace the built-in one")
	}
	if !p.AllowsCode(model.CategoryLLM, "ChatGLMLLM") {
		t.Error("expected upper-case category key to be normalized")
	}
	// tts is missing from the file and falls back to the built-in list.
	if !p.AllowsCode(model.CategoryTTS, "MinimaxStreamTTS") {
		t.Error("expected built-in tts list")
	}
	if !p.IsSensitive("private_key") || p.IsSensitive("password") {
		t.Errorf("sensitive fields = %v", p.SensitiveFields)
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
version: v2
allow:
  tts: []
`
	for _, format := range []string{"yaml", "yml", "YAML"} {
		p, err := Parse([]byte(doc), format)
		if err != nil {
			t.Fatalf("Parse(%s): %v", format, err)
		}
		if p.Version != "v2" {
			t.Errorf("Version = %q, want v2", p.Version)
		}
		if p.AllowsCode(model.CategoryTTS, "MinimaxStreamTTS") {
			t.Error("an explicitly empty tts list should allow nothing")
		}
		if !p.AllowsCode(model.CategoryASR, "FunASR") {
			t.Error("expected built-in asr list")
		}
		if !p.IsSensitive("api_key") {
			t.Error("expected built-in sensitive fields")
		}
	}
}

func TestParseEmptyDocument(t *testing.T) {
	for _, format := range []string{"toml", "yaml"} {
		p, err := Parse(nil, format)
		if err != nil {
			t.Fatalf("Parse(%s): %v", format, err)
		}
		if p.Version != "unversioned" {
			t.Errorf("Version = %q, want unversioned", p.Version)
		}
		if !p.AllowsCode(model.CategoryLLM, "MinimaxLLM") {
			t.Errorf("%s: expected built-in llm list", format)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		format  string
		wantErr string
	}{
		{"unsupported format", `{}`, "json", "unsupported policy format"},
		{"bad toml", `allow = [`, "toml", "decode toml policy"},
		{"bad yaml", "allow: [\n", "yaml", "decode yaml policy"},
		{"unknown toml key", `colour = "blue"`, "toml", "unknown key"},
		{"unknown yaml key", "colour: blue\n", "yaml", "decode yaml policy"},
		{"always category", "allow:\n  memory: [Mem0]\n", "yaml", "not allow-list governed"},
		{"empty code", "allow:\n  asr: [\"\"]\n", "yaml", "allow.asr: empty code"},
		{"empty sensitive field", "sensitive_fields: [api_key, \" \"]\n", "yaml", "sensitive_fields[1]"},
		{"duplicate category yaml", "allow:\n  ASR: [FunASR]\n  asr: [TencentASR]\n", "yaml", `categories "ASR" and "asr" both name asr`},
		{"duplicate category toml", "[allow]\nASR = [\"FunASR\"]\nasr = [\"TencentASR\"]\n", "toml", `categories "ASR" and "asr" both name asr`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), tt.format)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.toml")
	if err := os.WriteFile(path, []byte("version = \"file\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Version != "file" {
		t.Errorf("Version = %q, want file", p.Version)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStatic(t *testing.T) {
	p := Default()
	src := Static(p)
	if src.Current() != p {
		t.Error("Static source returned a different policy")
	}
}
