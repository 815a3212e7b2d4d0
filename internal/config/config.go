package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aegisgraph/aegisgraph/internal/alert"
)

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// GraphConfig points at the Neo4j transactional HTTP endpoint that backs
// authorization and subject records.
type GraphConfig struct {
	URL      string        `yaml:"url"`
	Database string        `yaml:"database"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LLMConfig selects and parameterizes the text-generation capability.
// Provider "bedrock" uses the AWS SDK; "openai" talks to any
// chat-completions compatible endpoint at APIURL.
type LLMConfig struct {
	Provider  string        `yaml:"provider"`
	ModelID   string        `yaml:"model_id"`
	Region    string        `yaml:"region"`
	APIURL    string        `yaml:"api_url"`
	APIKey    string        `yaml:"api_key"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// AuthzConfig holds break-glass eligibility data. Markers are plain
// case-insensitive substrings; obfuscated or multilingual phrasings are a
// known detection gap, deliberately not guessed at here.
type AuthzConfig struct {
	EmergencyRoles   []string `yaml:"emergency_roles"`
	EmergencyMarkers []string `yaml:"emergency_markers"`
}

// SafetyConfig holds threat-screen tuning. PatternsPath optionally
// overrides the built-in keyword lists with a YAML file.
type SafetyConfig struct {
	BlockThreshold int    `yaml:"block_threshold"`
	PatternsPath   string `yaml:"patterns_path"`
}

// EscalationConfig tunes the self-healing state machine.
type EscalationConfig struct {
	Window    time.Duration `yaml:"window"`
	Threshold int           `yaml:"threshold"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

// HistoryConfig holds the conversation store settings.
type HistoryConfig struct {
	Path     string `yaml:"path"`
	MaxTurns int    `yaml:"max_turns"`
}

// MetricsConfig holds the Datadog series submission settings. An empty
// APIKey disables emission entirely.
type MetricsConfig struct {
	APIKey string   `yaml:"api_key"`
	Site   string   `yaml:"site"`
	Tags   []string `yaml:"tags"`
}

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig          `yaml:"server"`
	Graph      GraphConfig           `yaml:"graph"`
	LLM        LLMConfig             `yaml:"llm"`
	Authz      AuthzConfig           `yaml:"authz"`
	Safety     SafetyConfig          `yaml:"safety"`
	Escalation EscalationConfig      `yaml:"escalation"`
	History    HistoryConfig         `yaml:"history"`
	Metrics    MetricsConfig         `yaml:"metrics"`
	Alerts     []alert.WebhookConfig `yaml:"alerts"`
	AuditLog   string                `yaml:"audit_log"`
}

// DefaultConfig returns the built-in configuration matching the deployed
// defaults: 60s window, threshold 3, 600s cooldown, block threshold 70.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8000},
		Graph: GraphConfig{
			URL:      "http://localhost:7474",
			Database: "neo4j",
			Username: "neo4j",
			Timeout:  5 * time.Second,
		},
		LLM: LLMConfig{
			Provider:  "bedrock",
			ModelID:   "amazon.titan-text-express-v1",
			Region:    "us-east-1",
			MaxTokens: 600,
			Timeout:   60 * time.Second,
		},
		Authz: AuthzConfig{
			EmergencyRoles:   []string{"ER"},
			EmergencyMarkers: []string{"emergency", "unconscious"},
		},
		Safety: SafetyConfig{
			BlockThreshold: 70,
		},
		Escalation: EscalationConfig{
			Window:    60 * time.Second,
			Threshold: 3,
			Cooldown:  600 * time.Second,
		},
		History: HistoryConfig{
			Path:     DefaultHistoryPath(),
			MaxTurns: 10,
		},
		Metrics: MetricsConfig{
			Site: "datadoghq.com",
			Tags: []string{"service:aegisgraph"},
		},
	}
}

// DefaultDir returns the default configuration directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "aegisgraph")
	}
	return filepath.Join(home, ".aegisgraph")
}

// DefaultHistoryPath returns the default conversation store location.
func DefaultHistoryPath() string {
	return filepath.Join(DefaultDir(), "history.db")
}

// Load reads configuration from a YAML file.
// Empty path falls back to ~/.aegisgraph/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = filepath.Join(DefaultDir(), "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return DefaultConfig(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	h := sha256.Sum256(data)
	return cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}
