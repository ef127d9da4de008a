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
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeremyhahn/go-textsign/internal/config"
	"github.com/jeremyhahn/go-textsign/internal/rest"
	"github.com/jeremyhahn/go-textsign/pkg/crypto/rand"
	"github.com/jeremyhahn/go-textsign/pkg/keys"
	"github.com/jeremyhahn/go-textsign/pkg/logging"
	"github.com/jeremyhahn/go-textsign/pkg/metrics"
	"github.com/jeremyhahn/go-textsign/pkg/ratelimit"
	"github.com/jeremyhahn/go-textsign/pkg/storage"
	"github.com/jeremyhahn/go-textsign/pkg/storage/file"
	"github.com/jeremyhahn/go-textsign/pkg/storage/memory"
	"github.com/jeremyhahn/go-textsign/pkg/textsign"
)

const resourceInterval = 15 * time.Second

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST signing service",
		Long: `Run the REST signing service until interrupted.

Configuration comes from --config (YAML), then TEXTSIGN_* environment
variables such as TEXTSIGN_PORT and TEXTSIGN_KEYSTORE_PATH.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.flags.ConfigFile)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), cfg)
		},
	}
}

// serve runs the REST service described by cfg until ctx is done or the
// listener fails.
func (a *app) serve(ctx context.Context, cfg *config.Config) error {
	out := a.stderr
	if cfg.Logging.File != "" {
		w, err := logging.NewRotatingWriter(logging.RotationConfig{
			Filename:   cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		out = w
	}

	log, err := newServiceLogger(cfg.Logging, a.flags.Verbose, out)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		metrics.Enable()
		collector := metrics.StartResourceCollector(ctx, resourceInterval)
		defer collector.Stop()
	} else {
		metrics.Disable()
	}

	store, err := openKeystore(cfg.Keystore)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("Failed to close keystore", logging.Error(cerr))
		}
	}()

	rng, err := rand.NewResolver(cfg.RNGConfig())
	if err != nil {
		return err
	}
	defer func() { _ = rng.Close() }()
	log.Debug("Random source selected", logging.String("rng", string(rng.Mode())))

	svc := textsign.New(
		textsign.WithLogger(log),
		textsign.WithGenerator(keys.NewGenerator(rng)),
	)
	srv, err := rest.NewServer(&rest.Config{
		Address:        cfg.Address(),
		DefaultScheme:  cfg.DefaultScheme(),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		RateLimit: &ratelimit.Config{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMin,
			Burst:             cfg.RateLimit.Burst,
		},
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, svc, store, log)
	if err != nil {
		return err
	}

	// The first goroutine to fail cancels gctx, which stops the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	return g.Wait()
}

func newServiceLogger(cfg config.LoggingConfig, verbose bool, out io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = logging.LevelDebug
	}
	l, err := logging.NewSlogAdapter(&logging.Config{
		Level:  level,
		Format: cfg.Format,
		Output: out,
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func openKeystore(cfg config.KeystoreConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(), nil
	case "file":
		return file.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported keystore backend: %q", cfg.Backend)
	}
}
