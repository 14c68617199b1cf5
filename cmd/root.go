// Package cmd provides the command-line interface of minima.
//
// Configuration is read from several sources with clear precedence:
//  1. Command-line flags (--config, --port, ...) - highest priority
//  2. MINIMA_CONFIG_FILE environment variable - custom config file path
//  3. Individual environment variables (MINIMA_SERVER_PORT, MINIMA_PAGER_WINDOW_SIZE, ...)
//  4. The configuration file (.minima.yml) - lowest priority
//
// A .env file in the working directory is loaded before any of them, so its
// variables behave like exported ones.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/minima/internal/config"
	"github.com/conneroisu/minima/internal/logging"
	"github.com/conneroisu/minima/internal/site"
)

// EnvPrefix prefixes every environment variable minima reads.
const EnvPrefix = "MINIMA"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "minima",
	Short: "A minimal, grid based theme with a pager",
	Long: `minima renders a small site through a minimal, grid based theme.

Quick Start:
  minima serve                       Preview the site with live reload
  minima render /articles            Print one page
  minima pager --current 4 --total 20
  minima version`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .minima.yml, can also use MINIMA_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "log format (text, json)")
}

// initConfig wires .env, the config file, MINIMA_ environment variables and
// the persistent flags into viper.
func initConfig() {
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	switch {
	case cfgFile != "":
		viper.SetConfigFile(cfgFile)
	case os.Getenv(EnvPrefix+"_CONFIG_FILE") != "":
		viper.SetConfigFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	default:
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".minima")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the logger described by cfg, writing to stderr.
func newLogger(cfg *config.Config) logging.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		Component: "minima",
	})
}

// newBuilder loads the configured fixture into a site builder.
func newBuilder(cfg *config.Config, logger logging.Logger) (*site.Builder, error) {
	fixture, err := site.LoadOrDefault(cfg.Theme.Fixture)
	if err != nil {
		return nil, fmt.Errorf("loading fixture: %w", err)
	}

	return site.NewBuilder(fixture, site.Options{
		ThemeRoot:    os.DirFS(cfg.Theme.Root),
		Pager:        cfg.PagerOptions(),
		ItemsPerPage: cfg.Pager.ItemsPerPage,
		Logger:       logger,
	}), nil
}
