package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/minima/internal/config"
	"github.com/conneroisu/minima/internal/pager"
)

var pagerFormat = newFormatValue(FormatText, FormatText, FormatJSON, FormatYAML)

var pagerCmd = &cobra.Command{
	Use:     "pager",
	Aliases: []string{"p"},
	Short:   "Print the links of a pager",
	Long: `Compute the links a pager shows for the 0-based page --current out of
--total pages. Window size, ellipses and labels come from the pager section
of the configuration unless overridden by flags.

Examples:
  minima pager --current 4 --total 20
  minima pager --current 0 --total 3 --window 9 --format json
  minima pager --current 10 --total 50 --ellipses --format yaml`,
	Args: cobra.NoArgs,
	RunE: runPager,
}

func init() {
	rootCmd.AddCommand(pagerCmd)

	pagerCmd.Flags().IntP("current", "c", 0, "Current page, 0-based")
	pagerCmd.Flags().IntP("total", "t", 0, "Number of pages")
	pagerCmd.Flags().IntP("window", "w", pager.DefaultWindowSize, "Number of page links around the current page")
	pagerCmd.Flags().Bool("ellipses", false, "Mark pages hidden beyond the window with an ellipsis")
	pagerCmd.Flags().VarP(pagerFormat, "format", "f", "Output format (text, json, yaml)")
	AddFlagValidation(pagerCmd, "total", ValidateNonNegative)
	AddFlagValidation(pagerCmd, "window", ValidatePositive)
}

func runPager(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{
		"pager.window_size": "window",
		"pager.ellipses":    "ellipses",
	})
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	current, _ := cmd.Flags().GetInt("current")
	total, _ := cmd.Flags().GetInt("total")

	links, err := pager.Compute(pager.State{Current: current, Total: total}, cfg.PagerOptions())
	if err != nil {
		return err
	}
	return writeLinks(cmd.OutOrStdout(), links, pagerFormat.String())
}

func writeLinks(w io.Writer, links []pager.Link, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(links)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(links); err != nil {
			return err
		}
		return enc.Close()
	default:
		if len(links) == 0 {
			_, err := fmt.Fprintln(w, "no pager")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tLABEL\tTARGET\tTITLE")
		for _, link := range links {
			target := "-"
			if link.Target != nil {
				target = strconv.Itoa(*link.Target)
			}
			kind := string(link.Kind)
			if link.Current {
				kind += "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", kind, link.Label, target, link.Title)
		}
		return tw.Flush()
	}
}
