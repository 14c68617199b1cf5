package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/minima/internal/version"
)

var (
	versionFormat   = newFormatValue(FormatText, FormatText, FormatJSON, FormatYAML)
	versionShort    bool
	versionDetailed bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for minima: the semantic version, git commit,
build time, Go version and platform. Builds without a semantic release version
are reported as development builds.

Examples:
  minima version
  minima version --detailed
  minima version --format json`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().VarP(versionFormat, "format", "f", "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	info := version.Current()

	switch versionFormat.String() {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(info)
	}

	switch {
	case versionShort:
		fmt.Fprintln(w, info.Short())
	case versionDetailed:
		fmt.Fprintln(w, info.String())
		if info.Release {
			fmt.Fprintln(w, "Build type: release")
		} else {
			fmt.Fprintln(w, "Build type: development")
		}
	default:
		fmt.Fprintf(w, "minima %s\n", info.Short())
		fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
		fmt.Fprintf(w, "Platform: %s\n", info.Platform)
	}
	return nil
}
