// Package config provides configuration management for minima using Viper
// for flexible loading from files, environment variables and command-line
// flags.
//
// Configuration is read from a YAML file (.minima.yml by default), overridden
// by MINIMA_ prefixed environment variables and finally by flags bound in the
// cmd package. Load applies defaults for unset values and validates the
// result before anything is served.
package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/viper"

	"github.com/conneroisu/minima/internal/errors"
	"github.com/conneroisu/minima/internal/logging"
	"github.com/conneroisu/minima/internal/pager"
	"github.com/conneroisu/minima/internal/validation"
)

// Default values applied by Load.
const (
	DefaultPort         = 8080
	DefaultHost         = "localhost"
	DefaultEnvironment  = "development"
	DefaultThemeRoot    = "."
	DefaultItemsPerPage = 10
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Theme  ThemeConfig  `yaml:"theme" mapstructure:"theme"`
	Pager  PagerConfig  `yaml:"pager" mapstructure:"pager"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Host           string   `yaml:"host" mapstructure:"host"`
	Environment    string   `yaml:"environment" mapstructure:"environment"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type ThemeConfig struct {
	// Root is the directory theme files such as the logo resolve against.
	Root string `yaml:"root" mapstructure:"root"`
	// Fixture is the site fixture; empty selects the bundled one.
	Fixture string `yaml:"fixture" mapstructure:"fixture"`
	// Watch reloads the fixture when it changes on disk.
	Watch bool `yaml:"watch" mapstructure:"watch"`
}

type PagerConfig struct {
	WindowSize   int          `yaml:"window_size" mapstructure:"window_size"`
	ItemsPerPage int          `yaml:"items_per_page" mapstructure:"items_per_page"`
	Ellipses     bool         `yaml:"ellipses" mapstructure:"ellipses"`
	Labels       pager.Labels `yaml:"labels" mapstructure:"labels"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load builds the configuration from the global viper instance.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, err.Error())
	}

	// Handle allowed origins set via env as a comma separated string
	if viper.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if !viper.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if config.Server.Environment == "" {
		config.Server.Environment = DefaultEnvironment
	}

	if config.Theme.Root == "" {
		config.Theme.Root = DefaultThemeRoot
	}
	if !viper.IsSet("theme.watch") {
		config.Theme.Watch = true
	}

	if config.Pager.WindowSize == 0 {
		config.Pager.WindowSize = pager.DefaultWindowSize
	}
	if config.Pager.ItemsPerPage == 0 {
		config.Pager.ItemsPerPage = DefaultItemsPerPage
	}
	defaults := pager.DefaultLabels()
	if config.Pager.Labels.First == "" {
		config.Pager.Labels.First = defaults.First
	}
	if config.Pager.Labels.Previous == "" {
		config.Pager.Labels.Previous = defaults.Previous
	}
	if config.Pager.Labels.Next == "" {
		config.Pager.Labels.Next = defaults.Next
	}
	if config.Pager.Labels.Last == "" {
		config.Pager.Labels.Last = defaults.Last
	}

	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// PagerOptions returns the pager options of the configuration.
func (c *Config) PagerOptions() pager.Options {
	return pager.Options{
		WindowSize: c.Pager.WindowSize,
		Labels:     c.Pager.Labels,
		Ellipses:   c.Pager.Ellipses,
	}
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	var errs errors.ValidationErrorCollection

	validateServerConfig(&errs, &config.Server)
	validateThemeConfig(&errs, &config.Theme)
	validatePagerConfig(&errs, &config.Pager)
	validateLogConfig(&errs, &config.Log)

	if errs.HasErrors() {
		return errs.ToThemeError()
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(errs *errors.ValidationErrorCollection, config *ServerConfig) {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		errs.AddField("server.port", config.Port, fmt.Sprintf("port %d is not in valid range 0-65535", config.Port))
	}

	if err := validation.ValidateHost(config.Host); err != nil {
		errs.AddField("server.host", config.Host, err.Error())
	}

	for _, origin := range config.AllowedOrigins {
		if err := validation.ValidateOrigin(origin); err != nil {
			errs.AddField("server.allowed_origins", origin, err.Error())
		}
	}
}

func validateThemeConfig(errs *errors.ValidationErrorCollection, config *ThemeConfig) {
	if err := validation.ValidatePath(config.Root); err != nil {
		errs.AddField("theme.root", config.Root, err.Error())
	}
	if config.Fixture != "" {
		if err := validation.ValidatePath(config.Fixture); err != nil {
			errs.AddField("theme.fixture", config.Fixture, err.Error())
		}
	}
}

func validatePagerConfig(errs *errors.ValidationErrorCollection, config *PagerConfig) {
	if config.WindowSize <= 0 {
		errs.AddField("pager.window_size", config.WindowSize, "window size must be positive")
	}
	if config.ItemsPerPage <= 0 {
		errs.AddField("pager.items_per_page", config.ItemsPerPage, "items per page must be positive")
	}
}

func validateLogConfig(errs *errors.ValidationErrorCollection, config *LogConfig) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		errs.AddField("log.level", config.Level, err.Error())
	}
	if config.Format != "text" && config.Format != "json" {
		errs.AddField("log.format", config.Format, "format must be text or json")
	}
}
