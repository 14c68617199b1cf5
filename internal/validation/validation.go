// Package validation checks user supplied paths, hosts, origins and links
// before they reach the file system, the listener or rendered markup.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// shellChars never appear in legitimate paths or hosts and often signal an
// injection attempt.
var shellChars = []string{";", "&", "|", "$", "`", "<", ">"}

// ValidatePath validates a file path to prevent path traversal attacks
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if strings.Contains(filepath.Clean(path), "..") {
		return fmt.Errorf("path traversal detected: %s", path)
	}

	for _, char := range shellChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateHost validates the host the server binds to.
func ValidateHost(host string) error {
	for _, char := range append(shellChars, "(", ")", "\"", "'", "\\", "/", " ") {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains dangerous character: %q", char)
		}
	}
	return nil
}

// ValidateOrigin validates an allowed origin entry: "*" or an http(s) origin
// without path.
func ValidateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}

	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("origin %q has no host", origin)
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("origin %q must not have a path", origin)
	}
	return nil
}

// ValidateSitePath validates the path a page is served at.
func ValidateSitePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must start with /")
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path must not contain ..")
	}
	if strings.ContainsAny(path, "?#") {
		return fmt.Errorf("path must not contain a query or fragment")
	}
	return nil
}

// ValidateHref validates a link target: a relative reference or an http,
// https or mailto URL.
func ValidateHref(href string) error {
	if strings.TrimSpace(href) == "" {
		return fmt.Errorf("href cannot be empty")
	}
	if strings.ContainsAny(href, "\n\r\t") {
		return fmt.Errorf("href contains control characters")
	}

	u, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("invalid href: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return nil
	default:
		return fmt.Errorf("href scheme %q is not allowed", u.Scheme)
	}
}
