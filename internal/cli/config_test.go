package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/docket/internal/model"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at an empty directory and clears provider keys
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OLLAMA_BASE_URL"} {
		t.Setenv(key, "")
	}
	return home
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	c, used, err := loadConfig(nil, "")
	require.NoError(t, err)

	assert.Empty(t, used)
	assert.Equal(t, model.DefaultConfig().Server.Addr, c.Server.Addr)
	assert.Equal(t, time.Minute, c.RateLimit.Window)
	assert.Equal(t, 3, c.Statutes.MatchCount)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "docket.yaml", `
server:
  addr: ":9999"
rate_limit:
  window: 30s
  max_requests: 10
statutes:
  backend: memory
  seed_file: corpus.yaml
  category_rules:
    - category: labor
      when: claim.claim_type.contains("wage")
`)

	c, used, err := loadConfig(nil, path)
	require.NoError(t, err)

	assert.Equal(t, path, used)
	assert.Equal(t, ":9999", c.Server.Addr)
	assert.Equal(t, 30*time.Second, c.RateLimit.Window)
	assert.Equal(t, 10, c.RateLimit.MaxRequests)
	assert.Equal(t, "memory", c.Statutes.Backend)
	assert.Equal(t, "corpus.yaml", c.Statutes.SeedFile)
	require.Len(t, c.Statutes.CategoryRules, 1)
	assert.Equal(t, "labor", c.Statutes.CategoryRules[0].Category)

	// Untouched keys keep their defaults
	assert.Equal(t, 0.4, c.Statutes.Threshold)
}

func TestLoadConfig_HomeConfigPickedUp(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".docket"), 0o755))
	path := writeFile(t, filepath.Join(home, ".docket"), "config.yaml", "llm:\n  model: gpt-4o\n")

	c, used, err := loadConfig(nil, "")
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "gpt-4o", c.LLM.Model)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "docket.yaml", "llm:\n  model: gpt-4o\n")
	t.Setenv("DOCKET_LLM_MODEL", "gpt-4.1")
	t.Setenv("DOCKET_RATE_LIMIT_BACKEND", "redis")
	t.Setenv("DOCKET_LLM_API_KEY", "sk-env")
	t.Setenv("DOCKET_REDIS_PASSWORD", "hunter2")

	c, _, err := loadConfig(nil, path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1", c.LLM.Model)
	assert.Equal(t, "redis", c.RateLimit.Backend)
	assert.Equal(t, "sk-env", c.LLM.APIKey)
	assert.Equal(t, "hunter2", c.Redis.Password)
}

func TestLoadConfig_ProviderKeyFallback(t *testing.T) {
	isolate(t)
	t.Setenv("DOCKET_LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	c, _, err := loadConfig(nil, "")
	require.NoError(t, err)

	assert.Equal(t, "sk-ant", c.LLM.APIKey)
	assert.Equal(t, "sk-openai", c.Embedding.APIKey)
}

func TestLoadConfig_FlagOverridesEnv(t *testing.T) {
	isolate(t)
	t.Setenv("DOCKET_SERVER_ADDR", ":7000")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("addr", "", "")
	bindFlag(cmd, "addr", "server.addr")
	require.NoError(t, cmd.Flags().Set("addr", ":7001"))

	c, _, err := loadConfig(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, ":7001", c.Server.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown rate limit backend", "rate_limit:\n  backend: etcd\n"},
		{"memory statutes without seed", "statutes:\n  backend: memory\n"},
		{"threshold out of range", "statutes:\n  threshold: 1.5\n"},
		{"too many workers", "pipeline:\n  retrieval_workers: 100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := writeFile(t, dir, "docket.yaml", tt.yaml)

			_, _, err := loadConfig(nil, path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	dir := isolate(t)

	_, _, err := loadConfig(nil, filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {
	c := model.DefaultConfig()
	c.LLM.APIKey = "sk-secret"
	c.Redis.Password = "hunter2"
	c.Statutes.DatabaseURL = "postgres://docket:s3cret@db:5432/docket"

	r := redacted(c)

	assert.Equal(t, "****", r.LLM.APIKey)
	assert.Equal(t, "", r.Embedding.APIKey)
	assert.Equal(t, "****", r.Redis.Password)
	assert.NotContains(t, r.Statutes.DatabaseURL, "s3cret")
	assert.Contains(t, r.Statutes.DatabaseURL, "db:5432")

	// The original is untouched
	assert.Equal(t, "sk-secret", c.LLM.APIKey)
}

func TestWriteDefaultConfig_RoundTrips(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, writeDefaultConfig(path))
	assert.Error(t, writeDefaultConfig(path), "existing file must not be overwritten")

	c, _, err := loadConfig(nil, path)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig().Pipeline, c.Pipeline)
}

func TestResultName(t *testing.T) {
	assert.Equal(t, "wage-claim.result.json", resultName("/cases/wage claim.yaml"))
	assert.Equal(t, "a_b.result.json", resultName("cases/a:b.json"))
}
