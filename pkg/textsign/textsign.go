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

// Package textsign is the entry point for signing and verifying text with
// the supported schemes. It resolves key and message sources, performs a
// single cryptographic operation per call, and records what it did.
//
// A Service holds only immutable collaborators and is safe for concurrent
// use. Nothing is cached between calls: every Sign or Verify loads its own
// key and buffers its own message.
package textsign

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-textsign/pkg/keys"
	"github.com/jeremyhahn/go-textsign/pkg/logging"
	"github.com/jeremyhahn/go-textsign/pkg/metrics"
	"github.com/jeremyhahn/go-textsign/pkg/scheme"
	"github.com/jeremyhahn/go-textsign/pkg/signing"
	"github.com/jeremyhahn/go-textsign/pkg/source"
	"github.com/jeremyhahn/go-textsign/pkg/storage"
	"github.com/jeremyhahn/go-textsign/pkg/verification"
)

// Service signs, verifies and generates keys.
type Service struct {
	opener    *source.Opener
	generator *keys.Generator
	logger    logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithOpener sets how key and message identifiers are resolved.
func WithOpener(o *source.Opener) Option {
	return func(s *Service) { s.opener = o }
}

// WithGenerator sets the key generator.
func WithGenerator(g *keys.Generator) Option {
	return func(s *Service) { s.generator = g }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a Service reading files and os.Stdin, generating keys from
// crypto/rand.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.opener == nil {
		s.opener = source.Default
	}
	if s.generator == nil {
		s.generator = keys.NewGenerator(nil)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s
}

// Sign reads the key named by keySource and the message named by
// msgSource ("-" for stdin) and returns the encoded signature.
func (s *Service) Sign(ctx context.Context, sch scheme.Scheme, keySource, msgSource string) (sig string, err error) {
	start := time.Now()
	defer func() { s.record(ctx, metrics.OpSign, sch, start, err) }()

	if err := checkSources(keySource, msgSource); err != nil {
		return "", err
	}

	signer, err := s.loadSigner(sch, keySource)
	if err != nil {
		return "", err
	}

	msg, err := s.opener.ReadAll(msgSource)
	if err != nil {
		return "", err
	}
	metrics.RecordMessageSize(metrics.OpSign, len(msg))

	return signing.EncodeSignature(signer.Sign(msg)), nil
}

// SignBytes signs msg with key material already in memory.
func (s *Service) SignBytes(ctx context.Context, sch scheme.Scheme, key, msg []byte) (sig string, err error) {
	start := time.Now()
	defer func() { s.record(ctx, metrics.OpSign, sch, start, err) }()

	signer, err := signing.New(sch, bytes.NewReader(key))
	if err != nil {
		return "", err
	}
	metrics.RecordMessageSize(metrics.OpSign, len(msg))

	return signing.EncodeSignature(signer.Sign(msg)), nil
}

// Verify reads the verification key and the message and checks the
// encoded signature. A mismatch is (false, nil).
func (s *Service) Verify(ctx context.Context, sch scheme.Scheme, keySource, msgSource, signature string) (ok bool, err error) {
	start := time.Now()
	defer func() { s.recordVerify(ctx, sch, start, ok, err) }()

	if err := checkSources(keySource, msgSource); err != nil {
		return false, err
	}

	verifier, err := s.loadVerifier(sch, keySource)
	if err != nil {
		return false, err
	}

	msg, err := s.opener.ReadAll(msgSource)
	if err != nil {
		return false, err
	}
	metrics.RecordMessageSize(metrics.OpVerify, len(msg))

	raw, err := verification.DecodeSignature(signature)
	if err != nil {
		return false, err
	}
	return verifier.Verify(msg, raw)
}

// VerifyBytes checks signature over msg with key material already in
// memory.
func (s *Service) VerifyBytes(ctx context.Context, sch scheme.Scheme, key, msg []byte, signature string) (ok bool, err error) {
	start := time.Now()
	defer func() { s.recordVerify(ctx, sch, start, ok, err) }()

	verifier, err := verification.New(sch, bytes.NewReader(key))
	if err != nil {
		return false, err
	}
	metrics.RecordMessageSize(metrics.OpVerify, len(msg))

	raw, err := verification.DecodeSignature(signature)
	if err != nil {
		return false, err
	}
	return verifier.Verify(msg, raw)
}

// Generate returns fresh key blobs for sch.
func (s *Service) Generate(ctx context.Context, sch scheme.Scheme) (blobs []keys.Blob, err error) {
	start := time.Now()
	defer func() { s.record(ctx, metrics.OpGenerate, sch, start, err) }()

	return s.generator.Generate(sch)
}

// Save writes blobs to backend under prefix without overwriting anything.
// Either every blob is written or, after a failure, the ones already
// written are removed again.
func (s *Service) Save(blobs []keys.Blob, backend storage.Backend, prefix string) error {
	if len(blobs) == 0 {
		return ErrNoBlobs
	}

	written := make([]string, 0, len(blobs))
	for _, b := range blobs {
		key := prefix + b.Name
		perms := storage.DefaultOptions().Permissions
		if !b.Secret {
			perms = 0644
		}
		err := backend.Put(key, b.Data, &storage.Options{Permissions: perms, NoOverwrite: true})
		if err != nil {
			for _, k := range written {
				if derr := backend.Delete(k); derr != nil {
					s.logger.Warn("textsign: rollback failed",
						logging.String("key", k), logging.Error(derr))
				}
			}
			return fmt.Errorf("textsign: saving %s: %w", key, err)
		}
		written = append(written, key)
	}

	s.logger.Debug("textsign: saved key material",
		logging.String("prefix", prefix), logging.Int("blobs", len(written)))
	return nil
}

func (s *Service) loadSigner(sch scheme.Scheme, keySource string) (signing.Signer, error) {
	rc, err := s.opener.Open(keySource)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return signing.New(sch, rc)
}

func (s *Service) loadVerifier(sch scheme.Scheme, keySource string) (verification.Verifier, error) {
	rc, err := s.opener.Open(keySource)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return verification.New(sch, rc)
}

func (s *Service) record(ctx context.Context, op string, sch scheme.Scheme, start time.Time, err error) {
	elapsed := time.Since(start)
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		metrics.RecordError(op, sch.String(), ErrorKind(err))
	}
	metrics.RecordOperation(op, sch.String(), status, elapsed.Seconds())

	fields := []logging.Field{
		logging.String("operation", op),
		logging.String("scheme", sch.String()),
		logging.Int64("duration_us", elapsed.Microseconds()),
	}
	if err != nil {
		s.logger.DebugContext(ctx, "textsign: operation failed", append(fields, logging.Error(err))...)
		return
	}
	s.logger.DebugContext(ctx, "textsign: operation complete", fields...)
}

func (s *Service) recordVerify(ctx context.Context, sch scheme.Scheme, start time.Time, ok bool, err error) {
	if err == nil {
		metrics.RecordVerification(sch.String(), ok)
	}
	s.record(ctx, metrics.OpVerify, sch, start, err)
}

func checkSources(keySource, msgSource string) error {
	if keySource == source.Stdin && msgSource == source.Stdin {
		return ErrStdinConflict
	}
	return nil
}

// ErrorKind names the failure class of err for metrics labels and API
// responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, source.ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, keys.ErrKeyTooShort):
		return "key_too_short"
	case errors.Is(err, keys.ErrInvalidKeyEncoding):
		return "invalid_key_encoding"
	case errors.Is(err, keys.ErrWeakKey):
		return "weak_key"
	case errors.Is(err, scheme.ErrUnknownScheme):
		return "unknown_scheme"
	case errors.Is(err, verification.ErrMalformedSignature):
		return "malformed_signature"
	case errors.Is(err, storage.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStdinConflict):
		return "stdin_conflict"
	default:
		return "internal"
	}
}
