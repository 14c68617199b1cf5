package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/minima/internal/accessibility"
	"github.com/conneroisu/minima/internal/config"
	"github.com/conneroisu/minima/internal/pager"
	"github.com/conneroisu/minima/internal/site"
)

var auditFormat = newFormatValue(FormatText, FormatText, FormatJSON, FormatYAML)

var auditCmd = &cobra.Command{
	Use:     "audit [path...]",
	Aliases: []string{"a"},
	Short:   "Check rendered pages for accessibility problems",
	Long: `Render the given pages (every page of the fixture by default) at every
pager position and check them for missing languages, titles, landmarks, image alternatives and link names,
duplicate ids and skipped heading levels. Exits non-zero when a page fails.

Examples:
  minima audit
  minima audit / /articles --format json`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().VarP(auditFormat, "format", "f", "Output format (text, json, yaml)")
	addThemeFlags(auditCmd)
}

// pageAudit is the result of auditing one page.
type pageAudit struct {
	Path       string                    `json:"path" yaml:"path"`
	Violations []accessibility.Violation `json:"violations" yaml:"violations"`
}

func runAudit(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, themeBindings)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	b, err := newBuilder(cfg, newLogger(cfg))
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		for _, node := range b.Fixture().Nodes {
			paths = append(paths, node.Path)
		}
	}

	var results []pageAudit
	failed := 0
	for _, path := range paths {
		queries, err := b.PagerPositions(path)
		if err != nil {
			return err
		}
		for _, query := range queries {
			result, err := auditPage(cmd.Context(), b, path, query)
			if err != nil {
				return err
			}
			if len(result.Violations) > 0 {
				failed++
			}
			results = append(results, result)
		}
	}

	if err := writeAudit(cmd.OutOrStdout(), results, auditFormat.String()); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pages failed the audit", failed, len(results))
	}
	return nil
}

// auditPage renders path at the pager position query and audits it.
func auditPage(ctx context.Context, b *site.Builder, path, query string) (pageAudit, error) {
	target := path
	req := site.Request{Path: path, Header: make(http.Header)}
	if query != "" {
		req.Query = url.Values{pager.QueryKey: {query}}
		target += "?" + req.Query.Encode()
	}

	var buf bytes.Buffer
	if err := b.Render(ctx, req, &buf); err != nil {
		return pageAudit{}, err
	}
	violations, err := accessibility.Audit(&buf)
	if err != nil {
		return pageAudit{}, fmt.Errorf("auditing %s: %w", target, err)
	}
	return pageAudit{Path: target, Violations: violations}, nil
}

func writeAudit(w io.Writer, results []pageAudit, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(results)
	}

	for _, r := range results {
		if len(r.Violations) == 0 {
			fmt.Fprintf(w, "ok    %s\n", r.Path)
			continue
		}
		fmt.Fprintf(w, "FAIL  %s\n", r.Path)
		for _, v := range r.Violations {
			fmt.Fprintf(w, "      %s (%s)\n", v, v.Element)
		}
	}
	return nil
}
