package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"geospider/pkg/spider"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ProjectConfig is the optional per-project configuration file. Every field
// only overrides the built-in default when set; CLI flags override both.
type ProjectConfig struct {
	CatalogURL string   `yaml:"catalog_url,omitempty"`
	Owner      string   `yaml:"owner,omitempty"`
	Protocols  []string `yaml:"protocols,omitempty"`

	Workers       int    `yaml:"workers,omitempty"`
	FetchTimeout  string `yaml:"fetch_timeout,omitempty"`
	RetryAttempts int    `yaml:"retry_attempts,omitempty"`
}

const ConfigFileName = "geospider.yaml"

// Load reads the project config from sourcePath.
func Load(sourcePath string) (*ProjectConfig, error) {
	configPath := filepath.Join(sourcePath, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyTo copies the file's settings onto a harvest configuration. Only
// fields the file actually sets are touched, so flag values set earlier
// survive unless they are still at their zero value.
func (c *ProjectConfig) ApplyTo(cfg *spider.HarvestConfig) error {
	if cfg.CatalogURL == "" && c.CatalogURL != "" {
		cfg.CatalogURL = c.CatalogURL
	}
	if cfg.Owner == "" && c.Owner != "" {
		cfg.Owner = c.Owner
	}
	if len(cfg.Protocols) == 0 && len(c.Protocols) > 0 {
		for _, p := range c.Protocols {
			if !spider.IsValidProtocol(p) {
				return errors.Join(spider.ErrInvalidConfig, errors.New("unknown protocol in config file: "+p))
			}
			cfg.Protocols = append(cfg.Protocols, spider.ProtocolType(p))
		}
	}
	if cfg.Workers == 0 && c.Workers != 0 {
		cfg.Workers = c.Workers
	}
	if cfg.FetchTimeout == 0 && c.FetchTimeout != "" {
		d, err := time.ParseDuration(c.FetchTimeout)
		if err != nil {
			return errors.Join(spider.ErrInvalidConfig, errors.New("invalid fetch_timeout in config file: "+c.FetchTimeout))
		}
		cfg.FetchTimeout = d
	}
	if cfg.RetryAttempts == 0 && c.RetryAttempts != 0 {
		cfg.RetryAttempts = c.RetryAttempts
	}
	return nil
}
