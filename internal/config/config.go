// Package config loads vault settings from .deflink.yml, an optional .env
// file and DEFLINK_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	FileName = ".deflink.yml"
	StateDir = ".deflink"
	EnvFile  = ".env"
)

type Config struct {
	DefinitionsFolder string        `yaml:"definitions_folder"`
	AutoRewrite       bool          `yaml:"auto_rewrite"`
	Extensions        []string      `yaml:"extensions"`
	CacheSize         int           `yaml:"cache_size"`
	LogLevel          string        `yaml:"log_level"`
	Debounce          time.Duration `yaml:"debounce"`
	OpenCommand       string        `yaml:"open_command,omitempty"`
}

func Default() Config {
	return Config{
		DefinitionsFolder: "definitions",
		AutoRewrite:       true,
		Extensions:        []string{".md"},
		CacheSize:         200,
		LogLevel:          "info",
		Debounce:          500 * time.Millisecond,
	}
}

// Load reads the configuration of the vault at root. Missing files are not
// errors; invalid values are.
func Load(root string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(root, FileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", FileName, err)
		}
	case !os.IsNotExist(err):
		return Config{}, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	envPath := filepath.Join(root, EnvFile)
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", EnvFile, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write stores cfg as .deflink.yml in root.
func Write(root string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", FileName, err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("DEFLINK_DEFINITIONS_FOLDER"); ok && v != "" {
		cfg.DefinitionsFolder = v
	}
	if v, ok := lookup("DEFLINK_AUTO_REWRITE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEFLINK_AUTO_REWRITE %q: %w", v, err)
		}
		cfg.AutoRewrite = b
	}
	if v, ok := lookup("DEFLINK_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("DEFLINK_CACHE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DEFLINK_CACHE_SIZE %q: %w", v, err)
		}
		cfg.CacheSize = n
	}
	if v, ok := lookup("DEFLINK_DEBOUNCE"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DEFLINK_DEBOUNCE %q: %w", v, err)
		}
		cfg.Debounce = d
	}
	if v, ok := lookup("DEFLINK_OPEN_COMMAND"); ok && v != "" {
		cfg.OpenCommand = v
	}
	return nil
}

func (c *Config) normalize() {
	c.DefinitionsFolder = strings.Trim(filepath.ToSlash(strings.TrimSpace(c.DefinitionsFolder)), "/")
	if c.DefinitionsFolder != "" {
		c.DefinitionsFolder = path.Clean(c.DefinitionsFolder)
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}
}

func (c Config) Validate() error {
	if c.DefinitionsFolder == "" || c.DefinitionsFolder == "." {
		return fmt.Errorf("definitions_folder must name a folder inside the vault")
	}
	if c.DefinitionsFolder == ".." || strings.HasPrefix(c.DefinitionsFolder, "../") {
		return fmt.Errorf("definitions_folder %q points outside the vault", c.DefinitionsFolder)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must list at least one file extension")
	}
	for _, ext := range c.Extensions {
		if len(ext) < 2 {
			return fmt.Errorf("extensions contains an empty entry")
		}
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

// IsDefinitionSource reports whether the vault-relative id lives in the
// definitions folder.
func (c Config) IsDefinitionSource(id string) bool {
	id = strings.TrimPrefix(filepath.ToSlash(id), "./")
	return strings.HasPrefix(id, c.DefinitionsFolder+"/")
}
