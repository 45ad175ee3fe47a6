package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIURL is used when neither the config file nor the environment sets one.
	DefaultAPIURL = "http://localhost:3000/api"

	// DefaultTimeout bounds every HTTP request made by the client.
	DefaultTimeout = 15 * time.Second

	configFileName = ".flashcards.yaml"
)

// Config is the persisted client configuration.
// AccessToken is written only through the session store.
type Config struct {
	APIURL      string        `yaml:"api_url,omitempty"`
	AccessToken string        `yaml:"access_token,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// pathOverride lets tests and the --config flag redirect the config file.
var pathOverride string

// SetConfigPath overrides the config file location. An empty path restores the default.
func SetConfigPath(path string) {
	pathOverride = path
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// LoadConfig reads the config file, applying defaults and environment overrides.
// A missing file is not an error.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if err := readFile(path, cfg); err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(os.Getenv("FLASHCARDS_API_URL")); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FLASHCARDS_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FLASHCARDS_TIMEOUT %q: %w", v, err)
		}
		cfg.Timeout = d
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg, nil
}

// Update loads the raw config file, applies fn and writes the result atomically.
// The lock is held for the whole read-modify-write.
func Update(fn func(cfg *Config)) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	lock := NewFileLock(LockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock config: %w", err)
	}
	defer lock.Unlock()

	cfg := &Config{}
	if err := readFile(path, cfg); err != nil {
		return err
	}
	fn(cfg)
	return writeFile(path, cfg)
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// writeFile writes to a temp file then renames it over path.
func writeFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
