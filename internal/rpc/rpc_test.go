package rpc

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/alfredjeanlab/cfgseed/internal/model"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	if c == nil {
		t.Fatalf("codec %q not registered", CodecName)
	}

	data, err := c.Marshal(&CreateAccountRequest{Username: "alice", SkipDefaults: true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"skip_defaults":true`) {
		t.Errorf("unexpected encoding: %s", data)
	}

	var got CreateAccountRequest
	if err := c.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Username != "alice" || !got.SkipDefaults {
		t.Errorf("round trip = %+v", got)
	}
}

func TestCodecProtoMessages(t *testing.T) {
	c := encoding.GetCodec(CodecName)

	data, err := c.Marshal(&emptypb.Empty{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.TrimSpace(string(data)) != "{}" {
		t.Errorf("empty encoded as %q", data)
	}
	// Unknown fields from newer peers are dropped.
	if err := c.Unmarshal([]byte(`{"extra":1}`), &emptypb.Empty{}); err != nil {
		t.Errorf("Unmarshal: %v", err)
	}
}

func TestConfigConversion(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in := &model.ModelConfig{
		ID: "mc-1", AccountID: "ac-1", Category: "asr", Code: "FunASR", Name: "FunASR",
		Enabled: true, Sort: 2,
		Settings:  json.RawMessage(`{"model_dir":"m","api_key":"","opts":{"beam":4,"lm":true},"langs":["zh","en"]}`),
		CreatedAt: created, UpdatedAt: created,
	}

	pc, err := ConfigToProto(in)
	if err != nil {
		t.Fatalf("ConfigToProto: %v", err)
	}
	if pc.Settings.Fields["model_dir"].GetStringValue() != "m" {
		t.Errorf("settings struct = %v", pc.Settings.Struct)
	}
	if !pc.CreatedAt.AsTime().Equal(created) {
		t.Errorf("created_at = %v", pc.CreatedAt.AsTime())
	}

	// Through the codec, as the server would send it.
	data, err := encoding.GetCodec(CodecName).Marshal(&ListConfigsResponse{Configs: []*ModelConfig{pc}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var resp ListConfigsResponse
	if err := encoding.GetCodec(CodecName).Unmarshal(data, &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	out, err := ConfigFromProto(resp.Configs[0])
	if err != nil {
		t.Fatalf("ConfigFromProto: %v", err)
	}
	want := `{"api_key":"","langs":["zh","en"],"model_dir":"m","opts":{"beam":4,"lm":true}}`
	if string(out.Settings) != want {
		t.Errorf("settings = %s, want %s", out.Settings, want)
	}
	if out.ID != in.ID || out.Sort != 2 || !out.Enabled || !out.CreatedAt.Equal(created) || !out.UpdatedAt.Equal(created) {
		t.Errorf("round trip = %+v", out)
	}
}

func TestConfigConversion_EmptySettings(t *testing.T) {
	pc, err := ConfigToProto(&model.ModelConfig{ID: "mc-2"})
	if err != nil {
		t.Fatalf("ConfigToProto: %v", err)
	}
	if pc.Settings != nil || pc.CreatedAt != nil {
		t.Errorf("expected nil settings and timestamps, got %+v", pc)
	}
	out, err := ConfigFromProto(pc)
	if err != nil {
		t.Fatalf("ConfigFromProto: %v", err)
	}
	if out.Settings != nil || !out.CreatedAt.IsZero() {
		t.Errorf("round trip = %+v", out)
	}
}

func TestConfigConversion_NonObjectSettings(t *testing.T) {
	_, err := ConfigToProto(&model.ModelConfig{ID: "mc-3", Settings: json.RawMessage(`["a"]`)})
	if err == nil {
		t.Fatal("expected error for array settings")
	}
}

func TestEventConversion(t *testing.T) {
	in := &model.Event{ID: 7, Topic: "cfgseed.configs.initialized", AccountID: "ac-1", Actor: "admin",
		Payload: json.RawMessage(`{"account_id":"ac-1","copied":3}`)}
	pe, err := EventToProto(in)
	if err != nil {
		t.Fatalf("EventToProto: %v", err)
	}
	out, err := EventFromProto(pe)
	if err != nil {
		t.Fatalf("EventFromProto: %v", err)
	}
	if out.ID != 7 || out.Actor != "admin" || string(out.Payload) != `{"account_id":"ac-1","copied":3}` {
		t.Errorf("round trip = %+v payload=%s", out, out.Payload)
	}
}

func TestAccountConversion(t *testing.T) {
	if AccountToProto(nil) != nil || AccountFromProto(nil) != nil {
		t.Fatal("nil accounts should stay nil")
	}
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := AccountFromProto(AccountToProto(&model.Account{ID: "ac-1", Username: "root", SuperAdmin: true, CreatedAt: created}))
	if out.ID != "ac-1" || !out.SuperAdmin || !out.CreatedAt.Equal(created) {
		t.Errorf("round trip = %+v", out)
	}
}

func TestServiceDescMethods(t *testing.T) {
	want := map[string]string{
		"CreateAccount":            MethodCreateAccount,
		"GetAccount":               MethodGetAccount,
		"InitializeDefaultConfigs": MethodInitializeDefaultConfigs,
		"ListConfigs":              MethodListConfigs,
		"GetEvents":                MethodGetEvents,
		"GetPolicy":                MethodGetPolicy,
	}
	if len(ServiceDesc.Methods) != len(want) {
		t.Fatalf("got %d methods, want %d", len(ServiceDesc.Methods), len(want))
	}
	for _, m := range ServiceDesc.Methods {
		full, ok := want[m.MethodName]
		if !ok {
			t.Errorf("unexpected method %q", m.MethodName)
			continue
		}
		if full != "/"+ServiceName+"/"+m.MethodName {
			t.Errorf("full method for %s = %q", m.MethodName, full)
		}
	}
}
