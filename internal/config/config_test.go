package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "config")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "test.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	return dir
}

const minimalConfig = `
http:
  port: 8080
database:
  addrs: ["localhost:6379"]
`

func TestLoad_AppliesDefaults(t *testing.T) {
	writeConfig(t, minimalConfig)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Classifier.Mode != "heuristic" {
		t.Errorf("classifier mode = %q, want heuristic", cfg.Classifier.Mode)
	}
	if cfg.Retrieval.StdDevThreshold != 0.002 || cfg.Retrieval.SpreadThreshold != 0.003 {
		t.Errorf("plateau thresholds = %g/%g, want 0.002/0.003",
			cfg.Retrieval.StdDevThreshold, cfg.Retrieval.SpreadThreshold)
	}
	if cfg.Retrieval.ToleranceFraction != 0.2 {
		t.Errorf("tolerance fraction = %g, want 0.2", cfg.Retrieval.ToleranceFraction)
	}
	if cfg.Retrieval.DefaultTopK != 10 {
		t.Errorf("default top_k = %d, want 10", cfg.Retrieval.DefaultTopK)
	}
	if cfg.Corpus.Path == "" {
		t.Error("corpus path default missing")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_ADDR", "redis-host:6379")
	writeConfig(t, `
http:
  port: 8080
database:
  addrs: ["${TEST_DB_ADDR}"]
auth:
  api_keys: ["${TEST_MISSING_KEY:-fallback-key}"]
`)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Addrs[0] != "redis-host:6379" {
		t.Errorf("addr = %q, want expanded env var", cfg.Database.Addrs[0])
	}
	if cfg.Auth.APIKeys[0] != "fallback-key" {
		t.Errorf("api key = %q, want default fallback", cfg.Auth.APIKeys[0])
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }},
		{"no database addrs", func(c *Config) { c.Database.Addrs = nil }},
		{"unknown classifier mode", func(c *Config) { c.Classifier.Mode = "llm" }},
		{"openai classifier without model", func(c *Config) {
			c.Classifier.Mode = "openai"
			c.Classifier.Provider = "nebius"
		}},
		{"openai classifier with unknown provider", func(c *Config) {
			c.Classifier.Mode = "openai"
			c.Classifier.Provider = "missing"
			c.Classifier.Model = "some-model"
		}},
		{"tolerance fraction too large", func(c *Config) { c.Retrieval.ToleranceFraction = 1.5 }},
		{"vectorizer with unknown provider", func(c *Config) {
			c.Embedding.Vectorizers = map[string]VectorizerConfig{
				"main": {Provider: "missing", Model: "m"},
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				HTTP:     HTTPConfig{Port: 8080},
				Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
			}
			cfg.ApplyDefaults()
			tt.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_PseudoVectorizerNeedsNoProvider(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			Vectorizers: map[string]VectorizerConfig{
				"main": {Provider: "pseudo", Dimensions: 128},
			},
		},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if env := GetEnv(); env != "local" {
		t.Errorf("GetEnv = %q, want local", env)
	}
	t.Setenv("ENV", "prod")
	if env := GetEnv(); env != "prod" {
		t.Errorf("GetEnv = %q, want prod", env)
	}
}
