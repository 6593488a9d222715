package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	content := "definitions_folder: glossary/\nauto_rewrite: false\nextensions: [md, .markdown]\ncache_size: 50\nlog_level: DEBUG\ndebounce: 2s\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(content), 0644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "glossary", cfg.DefinitionsFolder)
	assert.False(t, cfg.AutoRewrite)
	assert.Equal(t, []string{".md", ".markdown"}, cfg.Extensions)
	assert.Equal(t, 50, cfg.CacheSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Debounce)
}

func TestLoadEnvOverrides(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("cache_size: 50\n"), 0644))
	t.Setenv("DEFLINK_CACHE_SIZE", "10")
	t.Setenv("DEFLINK_AUTO_REWRITE", "false")
	t.Setenv("DEFLINK_DEFINITIONS_FOLDER", "terms")

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.CacheSize)
	assert.False(t, cfg.AutoRewrite)
	assert.Equal(t, "terms", cfg.DefinitionsFolder)
}

func TestApplyEnvFromLookup(t *testing.T) {
	env := map[string]string{
		"DEFLINK_OPEN_COMMAND": "code",
		"DEFLINK_DEBOUNCE":     "1s",
		"DEFLINK_LOG_LEVEL":    "warn",
	}
	cfg := Default()
	require.NoError(t, applyEnv(&cfg, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}))
	assert.Equal(t, "code", cfg.OpenCommand)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, "warn", cfg.LogLevel)

	bad := Default()
	err := applyEnv(&bad, func(key string) (string, bool) {
		if key == "DEFLINK_CACHE_SIZE" {
			return "many", true
		}
		return "", false
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFLINK_CACHE_SIZE")
}

func TestValidateNamesOffendingKey(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"empty folder", func(c *Config) { c.DefinitionsFolder = "" }, "definitions_folder"},
		{"escaping folder", func(c *Config) { c.DefinitionsFolder = "../elsewhere" }, "definitions_folder"},
		{"no extensions", func(c *Config) { c.Extensions = nil }, "extensions"},
		{"zero cache", func(c *Config) { c.CacheSize = 0 }, "cache_size"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Second }, "debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestWriteThenLoad(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.DefinitionsFolder = "glossary"
	cfg.Debounce = time.Second
	require.NoError(t, Write(root, cfg))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestIsDefinitionSource(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.IsDefinitionSource("definitions/test.md"))
	assert.True(t, cfg.IsDefinitionSource("./definitions/nested/x.md"))
	assert.False(t, cfg.IsDefinitionSource("definitions.md"))
	assert.False(t, cfg.IsDefinitionSource("notes/definitions/x.md"))
}
