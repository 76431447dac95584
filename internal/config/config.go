package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Config models brdflow.yml.
type Config struct {
	Storage struct {
		Backend string `yaml:"backend"`
		DSN     string `yaml:"dsn"`
	} `yaml:"storage"`
	Generation struct {
		LatencyMS int `yaml:"latency_ms"`
	} `yaml:"generation"`
	PDF struct {
		HeaderTitle   string `yaml:"header_title"`
		Organization  string `yaml:"organization"`
		DocumentTitle string `yaml:"document_title"`
		Compress      bool   `yaml:"compress"`
	} `yaml:"pdf"`
	Masking struct {
		ExtraTerms []MaskTerm `yaml:"extra_terms"`
	} `yaml:"masking"`
	Webhooks []Webhook `yaml:"webhooks"`
}

type MaskTerm struct {
	Term        string `yaml:"term"`
	Replacement string `yaml:"replacement"`
}

type Webhook struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// IsEnabled treats a missing enabled flag as true.
func (w Webhook) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// Latency returns the configured generation delay.
func (c *Config) Latency() time.Duration {
	return time.Duration(c.Generation.LatencyMS) * time.Millisecond
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with brd config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite:
	case BackendMySQL:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("config.storage.dsn is required for backend mysql")
		}
	default:
		return fmt.Errorf("config.storage.backend must be one of memory, sqlite, mysql (got %q)", c.Storage.Backend)
	}
	if c.Generation.LatencyMS < 0 {
		return fmt.Errorf("config.generation.latency_ms must not be negative")
	}
	if strings.TrimSpace(c.PDF.HeaderTitle) == "" {
		return fmt.Errorf("config.pdf.header_title is required")
	}
	for i, t := range c.Masking.ExtraTerms {
		if strings.TrimSpace(t.Term) == "" {
			return fmt.Errorf("config.masking.extra_terms[%d].term is empty", i)
		}
	}
	for i, h := range c.Webhooks {
		u, err := url.Parse(h.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config.webhooks[%d].url %q is not an absolute url", i, h.URL)
		}
		if h.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
		for _, evt := range h.Events {
			if evt == "" {
				return fmt.Errorf("config.webhooks[%d] has empty event type", i)
			}
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "brdflow.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// YAML renders the config back to YAML.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

const defaultTemplate = `storage:
  backend: sqlite
  dsn: ""

generation:
  latency_ms: 900

pdf:
  header_title: BRD for PRIME HOME LOAN LOS
  organization: ABC BANK
  document_title: LOS FOR PRIME HOME LOAN (PHL)
  compress: true

masking:
  extra_terms: []

webhooks: []
`
