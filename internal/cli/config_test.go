package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ppiankov/hazardscore/internal/model"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	v := viper.New()
	if err := configure(v, ""); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	got, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	want := model.DefaultConfig()
	if got.Server.Addr != want.Server.Addr || got.Store.DSN != want.Store.DSN {
		t.Errorf("Expected defaults, got %+v", got)
	}
	if got.Scoring.Weights.StaleAfter != 24*time.Hour {
		t.Errorf("Expected stale_after 24h, got %v", got.Scoring.Weights.StaleAfter)
	}
	if len(got.Server.AllowOrigins) != 1 || got.Server.AllowOrigins[0] != "*" {
		t.Errorf("Expected allow_origins [*], got %v", got.Server.AllowOrigins)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scoring:
  dashboard_threshold: 0.5
  weights:
    stale_after: 12h
store:
  driver: memory
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HAZARDSCORE_SERVER_ADDR", ":9999")
	t.Setenv("HAZARDSCORE_CLASSIFIER_PROVIDER", "openai")
	t.Setenv("HAZARDSCORE_CLASSIFIER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := viper.New()
	if err := configure(v, path); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	got, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if got.Scoring.DashboardThreshold != 0.5 {
		t.Errorf("Expected threshold from file, got %v", got.Scoring.DashboardThreshold)
	}
	if got.Scoring.Weights.StaleAfter != 12*time.Hour {
		t.Errorf("Expected stale_after from file, got %v", got.Scoring.Weights.StaleAfter)
	}
	if got.Scoring.Weights.MLConfidence != 0.5 {
		t.Errorf("Expected unset weights to keep defaults, got %v", got.Scoring.Weights.MLConfidence)
	}
	if got.Store.Driver != "memory" {
		t.Errorf("Expected memory store, got %s", got.Store.Driver)
	}
	if got.Server.Addr != ":9999" {
		t.Errorf("Expected addr from env, got %s", got.Server.Addr)
	}
	if got.Classifier.APIKey != "sk-test" {
		t.Errorf("Expected OPENAI_API_KEY fallback, got %q", got.Classifier.APIKey)
	}
}

func TestConfigure_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	if err := configure(v, filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "consensus_radius_km: 5") {
		t.Errorf("Expected scoring defaults in file, got:\n%s", data)
	}

	// Written file loads back to the defaults
	v := viper.New()
	if err := configure(v, path); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	got, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if got.Scoring != model.DefaultConfig().Scoring {
		t.Errorf("Expected round-tripped scoring defaults, got %+v", got.Scoring)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("Expected refusal to overwrite existing config")
	}
}

func TestFlatten(t *testing.T) {
	got := map[string]any{}
	flatten("", map[string]any{
		"a": 1,
		"b": map[string]any{"c": "x", "d": map[string]any{"e": true}},
	}, func(k string, v any) { got[k] = v })

	if len(got) != 3 || got["a"] != 1 || got["b.c"] != "x" || got["b.d.e"] != true {
		t.Errorf("Unexpected flattening: %v", got)
	}
}

func TestClassifierFlag_ListsProviders(t *testing.T) {
	usage := rootCmd.PersistentFlags().Lookup("classifier").Usage
	for _, p := range []string{"keyword", "openai", "anthropic", "ollama"} {
		if !strings.Contains(usage, p) {
			t.Errorf("Expected --classifier help to mention %s, got %q", p, usage)
		}
	}
}
