package doctor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ferrolab/podflow/internal/agent"
	"github.com/ferrolab/podflow/internal/config"
)

func validConfig() *config.Config {
	return config.Defaults()
}

func registryWith(t *testing.T, manifests map[string]string) *agent.Registry {
	t.Helper()
	dir := t.TempDir()
	for name, manifest := range manifests {
		agentDir := filepath.Join(dir, name)
		if err := os.MkdirAll(agentDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(agentDir, "agent.yaml"), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(agentDir, "run.sh"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	reg, err := agent.Discover(dir, func(level, msg string, args ...any) {})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	return reg
}

func fullManifest(name string) string {
	return "name: " + name + "\nprotocol: 1\nentrypoint: run.sh\ncommands:\n  - summarize\n  - decide\n  - chat\n  - health\n"
}

func TestValidConfigPasses(t *testing.T) {
	reg := registryWith(t, map[string]string{"claude": fullManifest("claude")})
	cfg := validConfig()
	cfg.API.Auth.APIKey = "secret"

	result := New(cfg, reg).Validate()

	if !result.Valid {
		t.Errorf("expected valid, got errors: %+v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got: %+v", result.Warnings)
	}
}

func TestMissingRequiredFields(t *testing.T) {
	reg := registryWith(t, map[string]string{"claude": fullManifest("claude")})
	cfg := validConfig()
	cfg.State.Path = ""
	cfg.Agents.Dir = ""

	result := New(cfg, reg).Validate()

	if result.Valid {
		t.Error("expected invalid result")
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d: %+v", len(result.Errors), result.Errors)
	}
}

func TestBadListenAddress(t *testing.T) {
	reg := registryWith(t, map[string]string{"claude": fullManifest("claude")})
	cfg := validConfig()
	cfg.API.Listen = "not-an-address"

	result := New(cfg, reg).Validate()

	if result.Valid {
		t.Error("expected invalid result")
	}
	found := false
	for _, e := range result.Errors {
		if e.Field == "api.listen" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected api.listen error, got: %+v", result.Errors)
	}
}

func TestAPIDisabledSkipsListenCheck(t *testing.T) {
	reg := registryWith(t, map[string]string{"claude": fullManifest("claude")})
	cfg := validConfig()
	cfg.API.Enabled = false
	cfg.API.Listen = "garbage"

	result := New(cfg, reg).Validate()

	if !result.Valid {
		t.Errorf("expected valid, got errors: %+v", result.Errors)
	}
}

func TestMissingAPIKeyWarns(t *testing.T) {
	reg := registryWith(t, map[string]string{"claude": fullManifest("claude")})
	cfg := validConfig()
	cfg.API.Auth.APIKey = ""

	result := New(cfg, reg).Validate()

	if !result.Valid {
		t.Errorf("expected valid, got errors: %+v", result.Errors)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Field != "api.auth.api_key" {
		t.Errorf("expected api key warning, got: %+v", result.Warnings)
	}
}

func TestEmptyRegistryWarns(t *testing.T) {
	reg := registryWith(t, map[string]string{})
	cfg := validConfig()
	cfg.API.Auth.APIKey = "secret"

	result := New(cfg, reg).Validate()

	if !result.Valid {
		t.Errorf("expected valid, got errors: %+v", result.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Category == "agents" && strings.Contains(w.Message, "no agents discovered") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected no-agents warning, got: %+v", result.Warnings)
	}
}

func TestNilRegistryIsError(t *testing.T) {
	cfg := validConfig()
	cfg.API.Auth.APIKey = "secret"

	result := New(cfg, nil).Validate()

	if result.Valid {
		t.Error("expected invalid result")
	}
	if len(result.Errors) != 1 || result.Errors[0].Category != "agents" {
		t.Errorf("expected agents error, got: %+v", result.Errors)
	}
}

func TestAgentMissingCommandsWarns(t *testing.T) {
	manifest := "name: summarizer\nprotocol: 1\nentrypoint: run.sh\ncommands:\n  - summarize\n"
	reg := registryWith(t, map[string]string{"summarizer": manifest})
	cfg := validConfig()
	cfg.API.Auth.APIKey = "secret"

	result := New(cfg, reg).Validate()

	if !result.Valid {
		t.Errorf("expected valid, got errors: %+v", result.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Field == "summarizer" && strings.Contains(w.Message, "chat") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected chat warning for summarizer, got: %+v", result.Warnings)
	}
}

func TestUnresolvedEnvVarWarns(t *testing.T) {
	reg := registryWith(t, map[string]string{"claude": fullManifest("claude")})
	cfg := validConfig()
	cfg.API.Auth.APIKey = "secret"
	cfg.State.Path = "${PODFLOW_DOCTOR_UNSET_VAR}/podflow.db"

	result := New(cfg, reg).Validate()

	found := false
	for _, w := range result.Warnings {
		if w.Category == "env" && strings.Contains(w.Message, "PODFLOW_DOCTOR_UNSET_VAR") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected env warning, got: %+v", result.Warnings)
	}
}

func TestFormatHuman(t *testing.T) {
	r := &Result{Valid: true}
	if got := FormatHuman(r); got != "Configuration valid.\n" {
		t.Errorf("unexpected output: %q", got)
	}

	r = &Result{
		Valid:    false,
		Errors:   []Issue{{Category: "api", Field: "api.listen", Message: "invalid"}},
		Warnings: []Issue{{Category: "agents", Message: "no agents discovered"}},
	}
	out := FormatHuman(r)
	if !strings.Contains(out, "Configuration invalid (1 error(s), 1 warning(s))") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "ERROR [api] api.listen: invalid") {
		t.Errorf("missing error line: %q", out)
	}
	if !strings.Contains(out, "WARN  [agents] no agents discovered") {
		t.Errorf("missing warning line: %q", out)
	}
}

func TestFormatJSON(t *testing.T) {
	r := &Result{Valid: false, Errors: []Issue{{Category: "api", Message: "bad"}}}
	out, err := FormatJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Result
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if decoded.Valid || len(decoded.Errors) != 1 {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}
