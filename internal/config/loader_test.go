package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
state:
  path: /tmp/podflow.db
agents:
  dir: /tmp/agents
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Service.Name != "podflow" {
		t.Errorf("service name default not applied: %q", cfg.Service.Name)
	}
	if cfg.Service.LogLevel != "info" || cfg.Service.LogFormat != "json" {
		t.Errorf("log defaults not applied: %+v", cfg.Service)
	}
	if cfg.Workflow.DirectMergeWindow != 3*time.Second {
		t.Errorf("direct merge window default not applied: %v", cfg.Workflow.DirectMergeWindow)
	}
	if cfg.Agents.Timeouts.Chat != 300*time.Second {
		t.Errorf("chat timeout default not applied: %v", cfg.Agents.Timeouts.Chat)
	}
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
service:
  name: flowd
  log_level: debug
  log_format: text
state:
  path: /var/lib/podflow/state.db
agents:
  dir: /opt/agents
  timeouts:
    chat: 30s
workflow:
  direct_merge_window: 750ms
api:
  enabled: true
  listen: 0.0.0.0:9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Service.Name != "flowd" {
		t.Errorf("unexpected name: %q", cfg.Service.Name)
	}
	if cfg.Workflow.DirectMergeWindow != 750*time.Millisecond {
		t.Errorf("unexpected merge window: %v", cfg.Workflow.DirectMergeWindow)
	}
	if cfg.Agents.Timeouts.Chat != 30*time.Second {
		t.Errorf("unexpected chat timeout: %v", cfg.Agents.Timeouts.Chat)
	}
	if cfg.Agents.Timeouts.Summarize != 60*time.Second {
		t.Errorf("untouched timeout should keep default: %v", cfg.Agents.Timeouts.Summarize)
	}
	if cfg.API.Listen != "0.0.0.0:9090" {
		t.Errorf("unexpected listen: %q", cfg.API.Listen)
	}
}

func TestLoad_EnvInterpolation(t *testing.T) {
	t.Setenv("PODFLOW_TEST_STATE", "/tmp/env-state.db")
	path := writeConfig(t, t.TempDir(), `
state:
  path: ${PODFLOW_TEST_STATE}
agents:
  dir: /tmp/agents
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.State.Path != "/tmp/env-state.db" {
		t.Errorf("env var not interpolated: %q", cfg.State.Path)
	}
}

func TestLoad_UnsetAPIKeyEnvVarFails(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
state:
  path: /tmp/state.db
agents:
  dir: /tmp/agents
api:
  enabled: true
  listen: 127.0.0.1:8080
  auth:
    api_key: ${PODFLOW_DEFINITELY_UNSET_KEY}
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved env var in api_key")
	}
	if !strings.Contains(err.Error(), "PODFLOW_DEFINITELY_UNSET_KEY") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing state path",
			content: "state:\n  path: \"\"\nagents:\n  dir: /tmp/a\n",
			wantErr: "state.path",
		},
		{
			name:    "missing agents dir",
			content: "state:\n  path: /tmp/s.db\nagents:\n  dir: \"\"\n",
			wantErr: "agents.dir",
		},
		{
			name:    "bad log level",
			content: "service:\n  log_level: loud\nstate:\n  path: /tmp/s.db\nagents:\n  dir: /tmp/a\n",
			wantErr: "log_level",
		},
		{
			name:    "negative merge window",
			content: "state:\n  path: /tmp/s.db\nagents:\n  dir: /tmp/a\nworkflow:\n  direct_merge_window: -1s\n",
			wantErr: "direct_merge_window",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %v should mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_DirectoryResolvesConfigYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "state:\n  path: /tmp/s.db\nagents:\n  dir: /tmp/a\n")

	if _, err := Load(dir); err != nil {
		t.Fatalf("load by directory failed: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestLoad_ChecksumsEnforcedWhenPresent(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "state:\n  path: /tmp/s.db\nagents:\n  dir: /tmp/a\n")

	if err := GenerateChecksums(dir, []string{"config.yaml"}); err != nil {
		t.Fatalf("checksum generation failed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("load with valid checksums failed: %v", err)
	}

	// Tamper with the config after hashing.
	writeConfig(t, dir, "state:\n  path: /tmp/other.db\nagents:\n  dir: /tmp/a\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected integrity failure for tampered config")
	}
	if !strings.Contains(err.Error(), "hash mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
}
