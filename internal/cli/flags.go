// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-textsign.
//
// go-textsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0
	// ExitError indicates a general error.
	ExitError = 1
	// ExitInvalidInput indicates invalid flags or arguments.
	ExitInvalidInput = 2
)

// EnvPrefix prefixes environment variables that override global flags,
// e.g. TEXTSIGN_OUTPUT=json.
const EnvPrefix = "TEXTSIGN"

// ErrInvalidOutputFormat indicates an --output value other than text or json.
var ErrInvalidOutputFormat = errors.New("invalid output format")

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// ConfigFile is the service configuration file used by serve.
	ConfigFile string
	// Output specifies the output format (text or json).
	Output string
	// Verbose enables debug-level logging on stderr.
	Verbose bool
	// KeyDir is where generate writes key files by default.
	KeyDir string
}

// AddGlobalFlags adds global flags to a command.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "config file for the REST service")
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", string(OutputFormatText), "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().StringVar(&flags.KeyDir, "key-dir", ".", "directory for generated key files")
}

// BindGlobalFlags binds global flags to Viper so each may also be set
// through the environment (TEXTSIGN_OUTPUT, TEXTSIGN_VERBOSE, ...), and
// copies the resolved values back into flags.
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command, flags *GlobalFlags) error {
	// Root().PersistentFlags() finds the flags even from a subcommand.
	rootFlags := cmd.Root().PersistentFlags()
	for _, name := range []string{"config", "output", "verbose", "key-dir"} {
		if err := v.BindPFlag(name, rootFlags.Lookup(name)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags.ConfigFile = v.GetString("config")
	flags.Output = v.GetString("output")
	flags.Verbose = v.GetBool("verbose")
	flags.KeyDir = v.GetString("key-dir")

	if !IsValidOutputFormat(flags.Output) {
		return &invalidInputError{err: ErrInvalidOutputFormat, detail: flags.Output}
	}
	return nil
}

// IsValidOutputFormat checks if the given format is a valid output format.
func IsValidOutputFormat(format string) bool {
	switch OutputFormat(format) {
	case OutputFormatText, OutputFormatJSON:
		return true
	default:
		return false
	}
}

// invalidInputError marks errors caused by bad user input.
type invalidInputError struct {
	err    error
	detail string
}

func (e *invalidInputError) Error() string {
	if e.detail == "" {
		return e.err.Error()
	}
	return e.err.Error() + ": " + e.detail
}

func (e *invalidInputError) Unwrap() error { return e.err }

// ExitCodeForError returns ExitSuccess for nil, ExitInvalidInput for bad
// flags or arguments and ExitError for everything else.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var inv *invalidInputError
	if errors.As(err, &inv) {
		return ExitInvalidInput
	}
	return ExitError
}

// flagError is installed as the cobra flag error func so pflag parse
// failures exit with ExitInvalidInput.
func flagError(_ *cobra.Command, err error) error {
	return &invalidInputError{err: err}
}

// noArgs is cobra.NoArgs with its error marked as invalid input.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &invalidInputError{err: err}
	}
	return nil
}
