package config

import (
	"strings"
)

type Config struct {
	Server  ServerConfig
	Explain ExplainConfig
	Storage StorageConfig
	Ingest  IngestConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type ExplainConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type StorageConfig struct {
	DataDir string
}

type IngestConfig struct {
	PollInterval string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Explain: ExplainConfig{
			Model: "gpt-4",
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Ingest: IngestConfig{
			PollInterval: "500ms",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.akari.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/akari/config.json
// and secrets fall back to $XDG_DATA_HOME/akari/secrets.json.
//
// Environment variables (AKARI_*) override backend values on all platforms.
//
// The explanation API key is optional: when absent, explanation endpoints
// report the feature as unavailable instead of failing startup.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try platform keychain for secrets still empty after env overrides.
	if cfg.Explain.APIKey == "" {
		if key, err := kc.Get("akari", "openai_api_key"); err == nil && key != "" {
			cfg.Explain.APIKey = key
		}
	}
	if cfg.Server.APIToken == "" {
		if tok, err := kc.Get("akari", "api_token"); err == nil && tok != "" {
			cfg.Server.APIToken = tok
		}
	}

	return cfg, nil
}

// keychainReader reads from macOS Keychain via the security CLI.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
