// Package version reports the build information of the minima binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Set with -ldflags "-X github.com/conneroisu/minima/internal/version.Version=v1.2.3".
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version" yaml:"version"`
	Commit    string    `json:"commit,omitempty" yaml:"commit,omitempty"`
	Modified  bool      `json:"modified,omitempty" yaml:"modified,omitempty"`
	BuildTime time.Time `json:"build_time,omitzero" yaml:"build_time,omitempty"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	Release   bool      `json:"release" yaml:"release"`
}

// Current returns the build information of the running binary. Values set
// through ldflags take precedence over the module and VCS data embedded by
// the Go toolchain.
func Current() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(Version, GitCommit, BuildTime, bi)
}

func resolve(ver, commit, built string, bi *debug.BuildInfo) Info {
	info := Info{
		Version:   ver,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi != nil {
		if info.Version == "" || info.Version == "dev" {
			if v := bi.Main.Version; v != "" && v != "(devel)" {
				info.Version = v
			}
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if built == "" {
					built = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}

	if info.Version == "" || info.Version == "dev" {
		info.Version = "dev"
		if c := shortCommit(info.Commit); c != "" {
			info.Version = "dev-" + c
		}
	}
	info.BuildTime = parseTime(built)
	info.Release = isRelease(info.Version)
	return info
}

// Short is the one-line version, with the abbreviated commit for releases.
func (i Info) Short() string {
	c := shortCommit(i.Commit)
	if c == "" || strings.HasPrefix(i.Version, "dev") {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, c)
}

// String lists every known field, one per line.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version: %s\n", i.Version)
	if i.Commit != "" {
		fmt.Fprintf(&b, "Commit: %s", i.Commit)
		if i.Modified {
			b.WriteString(" (modified)")
		}
		b.WriteByte('\n')
	}
	if !i.BuildTime.IsZero() {
		fmt.Fprintf(&b, "Built: %s\n", i.BuildTime.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Go: %s\n", i.GoVersion)
	fmt.Fprintf(&b, "Platform: %s", i.Platform)
	return b.String()
}

// Semver parses version as a semantic version. A leading "v" is accepted.
func Semver(version string) (*semver.Version, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", version, err)
	}
	return v, nil
}

// isRelease reports whether version is semantic without a prerelease part.
// Go pseudo-versions carry one, so untagged module builds are not releases.
func isRelease(version string) bool {
	v, err := Semver(version)
	return err == nil && v.Prerelease() == ""
}

func shortCommit(commit string) string {
	if len(commit) < 7 {
		return ""
	}
	return commit[:7]
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
