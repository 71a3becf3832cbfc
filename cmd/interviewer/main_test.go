package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckCommandWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := strings.Join([]string{
		"LLM_PROVIDER=mock",
		"STORE_BACKEND=sqlite",
		"SQLITE_PATH=" + filepath.Join(dir, "interviewer.db"),
		"INTERVIEW_DURATION=15",
	}, "\n")
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	for _, key := range []string{"LLM_PROVIDER", "STORE_BACKEND", "SQLITE_PATH", "INTERVIEW_DURATION", "DATABASE_URL", "REDIS_URL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", "--env-file", envFile, "--log-level", "error"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("check error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"llm provider: mock", "store: sqlite", "interview duration: 15m0s"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q missing %q", got, want)
		}
	}
}

func TestMissingExplicitEnvFileFails(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check", "--env-file", filepath.Join(t.TempDir(), "nope.env")})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}
