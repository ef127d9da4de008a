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

// Package cli implements the textsign command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-textsign/pkg/logging"
	"github.com/jeremyhahn/go-textsign/pkg/source"
	"github.com/jeremyhahn/go-textsign/pkg/textsign"
)

// app carries the streams and resolved global flags shared by every
// subcommand of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	flags  GlobalFlags
	v      *viper.Viper
}

// NewRootCommand builds the command tree bound to the given streams.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return newApp(stdin, stdout, stderr).rootCommand()
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		flags:  GlobalFlags{Output: string(OutputFormatText)},
		v:      viper.New(),
	}
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "textsign",
		Short: "Sign and verify text with BLAKE3 or Ed25519",
		Long: `textsign signs and verifies messages and generates the keys to do so.

Supported schemes:
  - blake3:  keyed BLAKE3 hash over a 32 byte shared secret
  - ed25519: RFC 8032 signatures with a 32 byte signing key

Signatures are printed as URL-safe base64 without padding.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cobra checks required flags after this hook, without a
			// way to mark the error, so check them here first.
			if err := cmd.ValidateRequiredFlags(); err != nil {
				return &invalidInputError{err: err}
			}
			return BindGlobalFlags(a.v, cmd, &a.flags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &invalidInputError{err: fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
			}
			return cmd.Help()
		},
	}
	cmd.SetFlagErrorFunc(flagError)
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	AddGlobalFlags(cmd, &a.flags)

	cmd.AddCommand(a.versionCommand())
	cmd.AddCommand(a.textCommand())
	cmd.AddCommand(a.serveCommand())

	return cmd
}

// Run executes the command line in args and returns the process exit code.
// Errors are printed to stderr in the selected output format.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := newApp(stdin, stdout, stderr)
	cmd := a.rootCommand()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		_ = NewPrinter(a.flags.Output, stderr).PrintError(err)
	}
	return ExitCodeForError(err)
}

// Execute runs the CLI against the process streams and arguments. SIGINT
// and SIGTERM cancel the command context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func (a *app) printer() *Printer {
	return NewPrinter(a.flags.Output, a.stdout)
}

// logger writes to stderr so stdout carries only command output.
func (a *app) logger() logging.Logger {
	level := logging.LevelWarn
	if a.flags.Verbose {
		level = logging.LevelDebug
	}
	l, err := logging.NewSlogAdapter(&logging.Config{Level: level, Output: a.stderr})
	if err != nil {
		return logging.NewNop()
	}
	return l
}

func (a *app) service(opts ...textsign.Option) *textsign.Service {
	return textsign.New(append([]textsign.Option{
		textsign.WithOpener(&source.Opener{Stdin: a.stdin}),
		textsign.WithLogger(a.logger()),
	}, opts...)...)
}
