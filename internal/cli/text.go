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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeremyhahn/go-textsign/pkg/crypto/rand"
	"github.com/jeremyhahn/go-textsign/pkg/keys"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
	"github.com/jeremyhahn/go-textsign/pkg/source"
	"github.com/jeremyhahn/go-textsign/pkg/storage/file"
	"github.com/jeremyhahn/go-textsign/pkg/textsign"
)

func (a *app) textCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "text",
		Short: "Sign and verify text, and generate keys",
	}
	cmd.AddCommand(a.textSignCommand())
	cmd.AddCommand(a.textVerifyCommand())
	cmd.AddCommand(a.textGenerateCommand())
	return cmd
}

func (a *app) textSignCommand() *cobra.Command {
	var input, key string
	format := scheme.Blake3

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message with a private key",
		Example: `  echo -n "hello world" | textsign text sign -k blake3.key
  textsign text sign -i message.txt -k ed25519.signing --format ed25519`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateSource("input", input); err != nil {
				return err
			}
			if err := validateSource("key", key); err != nil {
				return err
			}
			a.hintInteractive(input)

			sig, err := a.service().Sign(cmd.Context(), format, key, input)
			if err != nil {
				return err
			}
			return a.printer().PrintSignature(sig)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", source.Stdin, "message file, or - for stdin")
	cmd.Flags().StringVarP(&key, "key", "k", "", "key file")
	cmd.Flags().Var(&format, "format", "signing scheme (blake3|ed25519)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func (a *app) textVerifyCommand() *cobra.Command {
	var input, key, sig string
	format := scheme.Blake3

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signed message",
		Long: `Verify a signature over a message. Prints true or false; a signature
that does not match is not an error.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateSource("input", input); err != nil {
				return err
			}
			if err := validateSource("key", key); err != nil {
				return err
			}
			a.hintInteractive(input)

			ok, err := a.service().Verify(cmd.Context(), format, key, input, sig)
			if err != nil {
				return err
			}
			return a.printer().PrintVerified(ok)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", source.Stdin, "message file, or - for stdin")
	cmd.Flags().StringVarP(&key, "key", "k", "", "key file (the verifying key for ed25519)")
	cmd.Flags().StringVarP(&sig, "sig", "s", "", "signature, URL-safe base64 without padding")
	cmd.Flags().Var(&format, "format", "signing scheme (blake3|ed25519)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("sig")
	return cmd
}

func (a *app) textGenerateCommand() *cobra.Command {
	var dir, rngMode string
	format := scheme.Blake3

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a key for the chosen scheme",
		Long: `Generate fresh key material and write it to a directory:
blake3.key for blake3, or ed25519.signing and ed25519.verifying for
ed25519. Existing files are never overwritten.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rand.NewResolver(rand.Mode(strings.ToLower(rngMode)))
			if err != nil {
				return &invalidInputError{err: fmt.Errorf("invalid value for --rng: %w", err)}
			}
			defer func() { _ = rng.Close() }()

			if dir == "" {
				dir = a.flags.KeyDir
			}
			store, err := file.New(dir)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			svc := a.service(textsign.WithGenerator(keys.NewGenerator(rng)))
			blobs, err := svc.Generate(cmd.Context(), format)
			if err != nil {
				return err
			}
			if err := svc.Save(blobs, store, ""); err != nil {
				return err
			}

			files := make([]string, 0, len(blobs))
			for _, b := range blobs {
				files = append(files, filepath.Join(store.Root(), b.Name))
			}
			return a.printer().PrintGenerated(format.String(), store.Root(), files)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "output directory (default from --key-dir)")
	cmd.Flags().StringVar(&rngMode, "rng", string(rand.ModeAuto), "random source (auto|software)")
	cmd.Flags().Var(&format, "format", "signing scheme (blake3|ed25519)")
	return cmd
}

// validateSource rejects identifiers that are neither stdin nor an
// existing file before any work is done.
func validateSource(flag, identifier string) error {
	if err := source.Validate(identifier); err != nil {
		return &invalidInputError{err: fmt.Errorf("invalid value %q for --%s: %w", identifier, flag, err)}
	}
	return nil
}

// hintInteractive tells a user typing the message by hand how to end it.
func (a *app) hintInteractive(input string) {
	if input != source.Stdin {
		return
	}
	f, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return
	}
	fmt.Fprintln(a.stderr, "Reading message from terminal, finish with Ctrl-D")
}
