// Package config loads crawler configuration from the environment and an
// optional TOML file. Environment variables win over file values.
//
// The GitHub token is required for any remote call but is validated
// lazily via [Config.Token] rather than at load time, so offline paths
// (tests, cache commands, serving published artifacts) never need one.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/plugdex/plugdex/pkg/errors"
)

// Cache backend selectors.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
	CacheBackendNone  = "none"
)

// Config holds all crawler settings.
type Config struct {
	// GitHubToken authenticates remote API calls. Empty until required.
	GitHubToken string

	// RepoLimit bounds how many repositories every stage iterates.
	// 0 means unlimited; used for dev/test runs.
	RepoLimit int

	// DataDir holds stage artifacts, the run report, and published docs.
	DataDir string

	// CacheDir is the content cache root for the file backend.
	CacheDir string

	// CacheBackend selects file, redis, or none.
	CacheBackend string

	// RedisAddr is the redis host:port when CacheBackend is redis.
	RedisAddr string

	// ListenAddr is the bind address for the serve command.
	ListenAddr string
}

// fileConfig mirrors the optional plugdex.toml layout.
type fileConfig struct {
	RepoLimit    int    `toml:"repo_limit"`
	DataDir      string `toml:"data_dir"`
	CacheDir     string `toml:"cache_dir"`
	CacheBackend string `toml:"cache_backend"`
	RedisAddr    string `toml:"redis_addr"`
	ListenAddr   string `toml:"listen_addr"`
}

// Load reads configuration from plugdex.toml (if path is non-empty or the
// default file exists) and the environment. A `.env` file is honored the
// same way the shell environment is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		CacheBackend: CacheBackendFile,
		ListenAddr:   ":8080",
	}

	if path == "" {
		if _, err := os.Stat("plugdex.toml"); err == nil {
			path = "plugdex.toml"
		}
	}
	if path != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
		}
		applyFile(cfg, fc)
	}

	applyEnv(cfg)

	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.CacheDir = filepath.Join(home, ".cache", "plugdex")
	}
	if cfg.CacheBackend == CacheBackendRedis && cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}

	switch cfg.CacheBackend {
	case CacheBackendFile, CacheBackendRedis, CacheBackendNone:
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"invalid cache backend %q (must be file, redis, or none)", cfg.CacheBackend)
	}

	return cfg, nil
}

func applyFile(cfg *Config, fc fileConfig) {
	if fc.RepoLimit > 0 {
		cfg.RepoLimit = fc.RepoLimit
	}
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.CacheDir != "" {
		cfg.CacheDir = fc.CacheDir
	}
	if fc.CacheBackend != "" {
		cfg.CacheBackend = fc.CacheBackend
	}
	if fc.RedisAddr != "" {
		cfg.RedisAddr = fc.RedisAddr
	}
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PLUGDEX_GITHUB_TOKEN")); v != "" {
		cfg.GitHubToken = v
	}
	if v := os.Getenv("PLUGDEX_REPO_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RepoLimit = n
		}
	}
	if v := os.Getenv("PLUGDEX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PLUGDEX_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("PLUGDEX_CACHE_BACKEND"); v != "" {
		cfg.CacheBackend = v
	}
	if v := os.Getenv("PLUGDEX_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("PLUGDEX_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
}

// Token returns the GitHub token, failing with a fatal configuration
// error when it is absent. Call this at the first remote call, not at
// startup.
func (c *Config) Token() (string, error) {
	if c.GitHubToken == "" {
		return "", errors.New(errors.ErrCodeMissingToken,
			"PLUGDEX_GITHUB_TOKEN is required for remote API access")
	}
	return c.GitHubToken, nil
}

// Limit applies the configured repo limit to n.
// Returns n unchanged when no limit is set.
func (c *Config) Limit(n int) int {
	if c.RepoLimit > 0 && n > c.RepoLimit {
		return c.RepoLimit
	}
	return n
}
