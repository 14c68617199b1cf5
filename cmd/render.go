package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/conneroisu/minima/internal/config"
	"github.com/conneroisu/minima/internal/site"
)

var renderCmd = &cobra.Command{
	Use:     "render [path]",
	Aliases: []string{"r"},
	Short:   "Render one page of the site",
	Long: `Render the page at path (default "/") and print it, or write it to --out.
The file is replaced atomically, so a server reading it never sees a partial page.

Examples:
  minima render
  minima render /articles --query page=2
  minima render /about --out public/about.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("out", "o", "", "Write the page to this file instead of stdout")
	renderCmd.Flags().String("query", "", "Query string of the request, e.g. page=1,2")
	renderCmd.Flags().Bool("logged-in", false, "Render as an authenticated visitor")
	addThemeFlags(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, themeBindings)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	b, err := newBuilder(cfg, logger)
	if err != nil {
		return err
	}

	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	rawQuery, _ := cmd.Flags().GetString("query")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return fmt.Errorf("invalid --query: %w", err)
	}
	loggedIn, _ := cmd.Flags().GetBool("logged-in")

	var buf bytes.Buffer
	req := site.Request{Path: path, Query: query, LoggedIn: loggedIn, Header: make(http.Header)}
	if err := b.Render(cmd.Context(), req, &buf); err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		_, err := buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	if err := atomic.WriteFile(out, &buf); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out)
	return nil
}
