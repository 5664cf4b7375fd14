package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	yaml "gopkg.in/yaml.v3"

	"github.com/auriora/feedme-client/internal/feedme"
)

// Config is the on-disk shape of a feedme-client binary's configuration: the
// websocket endpoint plus every feedme.Options field, inlined so a config
// file is flat (url, log, connectTimeoutMs, ...).
type Config struct {
	URL            string `yaml:"url"`
	feedme.Options `yaml:",inline"`
}

// DefaultConfigPath returns the default config location for feedme-client.
func DefaultConfigPath() string {
	confDir, err := os.UserConfigDir()
	if err != nil {
		log.Error().Err(err).Msg("Could not determine configuration directory.")
	}
	return filepath.Join(confDir, "feedme-client/config.yml")
}

// createDefaultConfig returns a Config struct with default values.
func createDefaultConfig() Config {
	return Config{
		URL:     "ws://localhost:8080/",
		Options: feedme.DefaultOptions(),
	}
}

// readConfigFile reads the configuration file at the given path.
func readConfigFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// parseConfig parses the YAML configuration data into a Config struct.
func parseConfig(data []byte) (*Config, error) {
	config := &Config{}
	err := yaml.Unmarshal(data, config)
	return config, err
}

// mergeWithDefaults merges the parsed configuration with the defaults.
func mergeWithDefaults(config *Config, defaults Config) error {
	if config.URL == "" {
		config.URL = defaults.URL
	}
	config.Options = feedme.NewOptions(config.Options)
	return nil
}

// validateConfig validates the configuration values that feedme.NewOptions
// does not already cover (it clamps every Options field itself).
func validateConfig(config *Config) error {
	if config.URL == "" {
		return fmt.Errorf("url must not be empty")
	}
	return nil
}

// LoadConfig is the primary way of loading a feedme-client binary's config.
func LoadConfig(path string) *Config {
	defaults := createDefaultConfig()

	conf, err := readConfigFile(path)
	if err != nil {
		log.Warn().
			Err(err).
			Str("path", path).
			Msg("Configuration file not found, using defaults.")
		return &defaults
	}

	config, err := parseConfig(conf)
	if err != nil {
		log.Error().
			Err(err).
			Str("path", path).
			Msg("Could not parse configuration file, using defaults.")
		return &defaults
	}

	if err = mergeWithDefaults(config, defaults); err != nil {
		log.Error().
			Err(err).
			Str("path", path).
			Msg("Could not merge configuration file with defaults, using defaults only.")
		return &defaults
	}

	if err = validateConfig(config); err != nil {
		log.Error().
			Err(err).
			Str("path", path).
			Msg("Invalid configuration, using defaults.")
		return &defaults
	}

	return config
}

// WriteConfig writes the config to a file, the same round-trippable shape
// LoadConfig reads.
func (c Config) WriteConfig(path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		log.Error().
			Err(err).
			Str("path", path).
			Msg("Could not marshal config!")
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), 0700)
	if err != nil {
		log.Error().
			Err(err).
			Str("path", path).
			Msg("Could not create directory for config file.")
		return err
	}

	err = os.WriteFile(path, out, 0600)
	if err != nil {
		log.Error().
			Err(err).
			Str("path", path).
			Msg("Could not write config to disk.")
		return err
	}

	log.Debug().
		Str("path", path).
		Msg("Configuration written to file.")
	return nil
}
