package main

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func writeMinimalConfig(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configYAML := `
service:
  name: podflow-test
state:
  path: ` + filepath.Join(tmpDir, "podflow.db") + `
agents:
  dir: ` + tmpDir + `
api:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath
}

func TestRunConfigHashUpdateVerboseDryRun(t *testing.T) {
	configPath := writeMinimalConfig(t)
	tmpDir := filepath.Dir(configPath)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigHashUpdate([]string{"--config", configPath, "-v", "--dry-run"})
	})
	if code != 0 {
		t.Fatalf("runConfigHashUpdate() code = %d, stderr: %s", code, stderr)
	}

	if !strings.Contains(stdout, "Processing directory:") {
		t.Fatalf("stdout missing verbose directory progress: %s", stdout)
	}
	hashPattern := regexp.MustCompile(`HASH config\.yaml: [a-f0-9]{64}`)
	if !hashPattern.MatchString(stdout) {
		t.Fatalf("stdout missing valid hash output: %s", stdout)
	}
	if !strings.Contains(stdout, "DRY-RUN .checksums:") {
		t.Fatalf("stdout missing dry-run line: %s", stdout)
	}
	if !strings.Contains(stdout, "Dry run completed") {
		t.Fatalf("stdout missing dry-run summary: %s", stdout)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".checksums")); !os.IsNotExist(err) {
		t.Fatal(".checksums should not be written in dry-run mode")
	}
}

func TestRunConfigHashUpdateWritesChecksums(t *testing.T) {
	configPath := writeMinimalConfig(t)
	tmpDir := filepath.Dir(configPath)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigHashUpdate([]string{"--config", configPath, "--verbose"})
	})
	if code != 0 {
		t.Fatalf("runConfigHashUpdate() code = %d, stderr: %s", code, stderr)
	}

	if !strings.Contains(stdout, "WROTE .checksums:") {
		t.Fatalf("stdout missing wrote checksums line: %s", stdout)
	}
	if !strings.Contains(stdout, "Successfully locked configuration") {
		t.Fatalf("stdout missing success summary: %s", stdout)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".checksums")); err != nil {
		t.Fatalf("expected .checksums to be written: %v", err)
	}
}

func TestRunConfigCheckValidConfig(t *testing.T) {
	configPath := writeMinimalConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runConfigCheck() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Configuration valid") {
		t.Fatalf("stdout missing valid verdict: %s", stdout)
	}
}

func TestRunConfigCheckStrictFailsOnWarnings(t *testing.T) {
	// Empty agents dir warns, so strict mode must exit 2.
	configPath := writeMinimalConfig(t)

	code, _, _ := captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath, "--strict"})
	})
	if code != 2 {
		t.Fatalf("runConfigCheck() strict code = %d, want 2", code)
	}
}

func TestRunConfigShowRedactsAPIKey(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configYAML := `
state:
  path: ` + filepath.Join(tmpDir, "podflow.db") + `
agents:
  dir: ` + tmpDir + `
api:
  enabled: true
  listen: 127.0.0.1:0
  auth:
    api_key: supersecret
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigShow([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runConfigShow() code = %d, stderr: %s", code, stderr)
	}
	if strings.Contains(stdout, "supersecret") {
		t.Fatalf("stdout leaked API key: %s", stdout)
	}
	if !strings.Contains(stdout, "<redacted>") {
		t.Fatalf("stdout missing redaction marker: %s", stdout)
	}
}

func TestRunAgentListEmptyDir(t *testing.T) {
	configPath := writeMinimalConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runAgentList([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runAgentList() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "No agents discovered") {
		t.Fatalf("stdout missing empty message: %s", stdout)
	}
}

func TestRunAgentListShowsDiscoveredAgents(t *testing.T) {
	tmpDir := t.TempDir()
	agentDir := filepath.Join(tmpDir, "agents", "claude")
	if err := os.MkdirAll(agentDir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := "name: claude\nversion: 2.1.0\nprotocol: 1\nentrypoint: run.sh\ncommands:\n  - summarize\n  - chat\n"
	if err := os.WriteFile(filepath.Join(agentDir, "agent.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(agentDir, "run.sh"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	configYAML := `
state:
  path: ` + filepath.Join(tmpDir, "podflow.db") + `
agents:
  dir: ` + filepath.Join(tmpDir, "agents") + `
api:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runAgentList([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runAgentList() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "claude") || !strings.Contains(stdout, "2.1.0") {
		t.Fatalf("stdout missing agent row: %s", stdout)
	}
	if !strings.Contains(stdout, "summarize,chat") {
		t.Fatalf("stdout missing commands: %s", stdout)
	}
}

func TestRunSystemStatusNoLock(t *testing.T) {
	configPath := writeMinimalConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runStatus([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runStatus() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "podflow is not running") {
		t.Fatalf("stdout missing not-running verdict: %s", stdout)
	}
}

func TestRunConfigNounActionHelp(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigNoun([]string{"check", "--help"})
	})
	if code != 0 {
		t.Fatalf("runConfigNoun() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Usage: podflow config check") {
		t.Fatalf("stdout missing action help usage: %s", stdout)
	}
}

func TestRunSystemNounActionHelp(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runSystemNoun([]string{"start", "--help"})
	})
	if code != 0 {
		t.Fatalf("runSystemNoun() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Usage: podflow system start") {
		t.Fatalf("stdout missing start action help usage: %s", stdout)
	}
}

func TestRunAgentNounActionHelp(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runAgentNoun([]string{"list", "--help"})
	})
	if code != 0 {
		t.Fatalf("runAgentNoun() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Usage: podflow agent list") {
		t.Fatalf("stdout missing list action help usage: %s", stdout)
	}
}

func TestPrintUsageUsesActionTerminology(t *testing.T) {
	_, stdout, _ := captureOutputWithExitCode(t, func() int {
		printUsage()
		return 0
	})
	if !strings.Contains(stdout, "podflow <noun> <action> [flags]") {
		t.Fatalf("usage missing action terminology: %s", stdout)
	}
	if strings.Contains(stdout, "<noun> <verb>") {
		t.Fatalf("usage should not reference verb terminology: %s", stdout)
	}
}
