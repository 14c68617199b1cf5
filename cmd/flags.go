package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Output formats of the commands that print structured data.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// formatValue is a pflag.Value restricted to a set of output formats.
type formatValue struct {
	value   string
	allowed []string
}

var _ pflag.Value = (*formatValue)(nil)

func newFormatValue(def string, allowed ...string) *formatValue {
	return &formatValue{value: def, allowed: allowed}
}

func (f *formatValue) String() string { return f.value }

func (f *formatValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(f.allowed, s) {
		return fmt.Errorf("unsupported format %q (supported: %s)", s, strings.Join(f.allowed, ", "))
	}
	f.value = s
	return nil
}

func (f *formatValue) Type() string { return "format" }

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort checks a --port value. Port 0 picks a free port.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// ValidateNonNegative checks an integer flag that must not be negative.
func ValidateNonNegative(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid number: %s", s)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

// ValidatePositive checks an integer flag that must be at least 1.
func ValidatePositive(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid number: %s", s)
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}
