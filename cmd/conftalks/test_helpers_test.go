package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	outputDir  string
}

func setupCLITestEnv(t *testing.T, baseURL string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("CONFTALKS_OUTPUT_DIR", "")

	env := &cliTestEnv{
		configPath: filepath.Join(homeDir, ".config", "conftalks", "config.toml"),
		outputDir:  filepath.Join(base, "data"),
	}
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, env.configPath, env.outputDir, baseURL)
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path, outputDir, baseURL string) {
	t.Helper()
	if baseURL == "" {
		baseURL = "http://127.0.0.1:1"
	}
	content := fmt.Sprintf(
		"[paths]\noutput_dir = %q\n\n[scraper]\nbase_url = %q\nworkers = 2\nretry_attempts = 0\nrequest_timeout_seconds = 5\n\n[topics]\nenabled = false\n",
		outputDir,
		baseURL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
