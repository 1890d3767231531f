package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tycho-agent/tycho/internal/config"
)

func TestRunPrintsUsageWithNoArgs(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(context.Background(), &out, &errOut, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Usage: tycho") {
		t.Errorf("expected usage text, got: %s", out.String())
	}
}

func TestRunHelpFlag(t *testing.T) {
	for _, flag := range []string{"-h", "-help", "--help"} {
		var out bytes.Buffer
		if err := run(context.Background(), &out, &out, []string{flag}); err != nil {
			t.Fatalf("run(%s) failed: %v", flag, err)
		}
		if !strings.Contains(out.String(), "analyze [prompt]") {
			t.Errorf("run(%s): expected command list in usage", flag)
		}
	}
}

func TestRunUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("expected unknown flag error, got: %v", err)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected unknown command error, got: %v", err)
	}
}

func TestRunUnknownOutputFormat(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-o", "yaml", "version"})
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("expected output format error, got: %v", err)
	}
}

func TestRunVersionText(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"version"}); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Tycho") {
		t.Errorf("expected banner in version output, got: %s", got)
	}
	if !strings.Contains(got, "go_version:") {
		t.Errorf("expected go_version field, got: %s", got)
	}
}

func TestRunVersionJSON(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("version -o json produced invalid JSON: %v", err)
	}
	for _, k := range []string{"version", "git_commit", "go_version"} {
		if info[k] == "" {
			t.Errorf("missing %q in version JSON", k)
		}
	}
}

func TestRunInitFreshDirectory(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	if err := runInit(&out, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "data"))
	if err != nil || !info.IsDir() {
		t.Errorf("expected data directory: %v", err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config.yaml not created: %v", err)
	}

	// The generated file must parse as a valid Tycho config.
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("generated config does not parse: %v", err)
	}
	if cfg.Conversation.MaxIterations != 10 {
		t.Errorf("max_iterations = %d, want 10", cfg.Conversation.MaxIterations)
	}
	if cfg.Search.Provider != "duckduckgo" {
		t.Errorf("search provider = %q, want duckduckgo", cfg.Search.Provider)
	}
}

func TestRunInitNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("prompt: custom\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runInit(&out, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "prompt: custom\n" {
		t.Error("runInit overwrote an existing config.yaml")
	}
}

func TestRunAnalyzeRequiresAPIKey(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("data_dir: \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	err := run(context.Background(), &out, &errOut, []string{"-config", cfgPath, "analyze"})
	if err == nil || !strings.Contains(err.Error(), "api key") {
		t.Errorf("expected api key error, got: %v", err)
	}
}

func TestRunHistoryNoDatabase(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgBody := "data_dir: " + filepath.Join(dir, "data") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-config", cfgPath, "history"})
	if err == nil || !strings.Contains(err.Error(), "no run history") {
		t.Errorf("expected no-history error, got: %v", err)
	}
}

func TestRunHistoryInvalidLimit(t *testing.T) {
	var out bytes.Buffer
	err := runHistory(&out, "", "text", []string{"-n", "zero"})
	if err == nil || !strings.Contains(err.Error(), "invalid -n") {
		t.Errorf("expected invalid -n error, got: %v", err)
	}
}

func TestNewSearchManagerProviders(t *testing.T) {
	cfg := config.Default()
	mgr := newSearchManager(cfg)
	providers := mgr.Providers()
	if len(providers) != 1 || providers[0] != "duckduckgo" {
		t.Errorf("default providers = %v, want [duckduckgo]", providers)
	}

	cfg.Search.Brave.APIKey = "key"
	cfg.Search.SearXNG.URL = "http://localhost:8888"
	mgr = newSearchManager(cfg)
	if got := len(mgr.Providers()); got != 3 {
		t.Errorf("providers = %d, want 3", got)
	}
}

func TestBuildRegistryToolSet(t *testing.T) {
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		t.Fatalf("buildRegistry failed: %v", err)
	}

	want := []string{"buy_stock", "get_market_overview", "get_stock_data", "hold_stock", "sell_stock", "web_search"}
	got := registry.Names()
	if len(got) != len(want) {
		t.Fatalf("tool names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tool[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
