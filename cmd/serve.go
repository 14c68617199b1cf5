package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/minima/internal/config"
	"github.com/conneroisu/minima/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Preview the site with live reload",
	Long: `Serve the site fixture through the theme. The fixture and the theme root
are watched; browsers reload when they change.

Examples:
  minima serve
  minima serve --fixture site.yml --theme-root ./theme
  minima serve --port 3000 --no-watch`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "Port to serve on")
	serveCmd.Flags().String("host", config.DefaultHost, "Host to bind to")
	serveCmd.Flags().String("environment", config.DefaultEnvironment, "Environment (development, production)")
	serveCmd.Flags().Bool("no-watch", false, "Don't reload when the fixture or theme changes")
	addThemeFlags(serveCmd)
	AddFlagValidation(serveCmd, "port", ValidatePort)
}

// addThemeFlags adds the flags selecting the fixture and theme root.
func addThemeFlags(cmd *cobra.Command) {
	cmd.Flags().String("fixture", "", "Site fixture (YAML); the bundled site when empty")
	cmd.Flags().String("theme-root", config.DefaultThemeRoot, "Directory theme files such as the logo resolve against")
}

// bindFlags binds flags of the running command to configuration keys. Several
// commands share keys, so binding happens at run time rather than in init.
func bindFlags(cmd *cobra.Command, bindings map[string]string) {
	for key, name := range bindings {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			_ = viper.BindPFlag(key, flag)
		}
	}
}

var themeBindings = map[string]string{
	"theme.fixture": "fixture",
	"theme.root":    "theme-root",
}

func runServe(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, themeBindings)
	bindFlags(cmd, map[string]string{
		"server.port":        "port",
		"server.host":        "host",
		"server.environment": "environment",
	})
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); noWatch {
		viper.Set("theme.watch", false)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Starting minima at http://%s\n", cfg.Address())
	return srv.Start(ctx)
}
