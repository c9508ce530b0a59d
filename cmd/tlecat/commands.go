package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/tlecat/internal/api"
	"github.com/star/tlecat/internal/catalog"
	"github.com/star/tlecat/internal/orbit"
	"github.com/star/tlecat/internal/pipeline"
	"github.com/star/tlecat/internal/retrieve"
	"github.com/star/tlecat/internal/stream"
	"github.com/star/tlecat/internal/tle"
)

const (
	runCatalogName   = "run_cat.json"
	rawDumpName      = "run_cat.txt"
	epochCatalogName = "epoch_cat.json"
)

func (a *app) rangeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.cfg.Regime, "regime", a.cfg.Regime, "orbit regime: geo, leo, meo, heo or all (first letter accepted)")
	cmd.Flags().StringVar(&a.cfg.Start, "start", a.cfg.Start, "first day of the range, YYYY-MM-DD")
	cmd.Flags().StringVar(&a.cfg.End, "end", a.cfg.End, "day after the range, YYYY-MM-DD (exclusive)")
}

func (a *app) chunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Print the query windows for a regime and date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Regime == "" {
				return fmt.Errorf("regime is required")
			}
			start, end, err := a.cfg.Dates()
			if err != nil {
				return err
			}
			r, chunks, err := pipeline.Plan(a.cfg.Regime, start, end)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s (%s), max %d days per query\n", r.Kind, r, r.MaxSpanDays)
			for _, c := range chunks {
				fmt.Fprintf(out, "%s\t%d\t%s\n", c.Epoch(), c.Days(), retrieve.NewQuery(r, c).Path())
			}
			return nil
		},
	}
	a.rangeFlags(cmd)
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Retrieve a date range and write the run catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateRun(); err != nil {
				return err
			}
			start, end, err := a.cfg.Dates()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := pipeline.Run(ctx, pipeline.Request{
				Regime:        a.cfg.Regime,
				Start:         start,
				End:           end,
				SkipMalformed: a.cfg.Lenient,
				Fetch: retrieve.RunnerConfig{
					Workers: a.cfg.Workers,
					Retries: a.cfg.Retries,
				},
			}, a.source(), a.logger)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(a.cfg.OutDir, 0755); err != nil {
				return fmt.Errorf("creating out dir: %w", err)
			}
			catPath := filepath.Join(a.cfg.OutDir, runCatalogName)
			if err := catalog.SaveRun(catPath, res.Catalog); err != nil {
				return err
			}
			rawPath := filepath.Join(a.cfg.OutDir, rawDumpName)
			if err := writeRaw(rawPath, res); err != nil {
				return err
			}

			a.logger.Info("run catalog written",
				"run_id", res.RunID,
				"path", catPath,
				"raw_path", rawPath,
				"objects", res.Catalog.Len(),
				"records", res.Catalog.Records(),
			)
			return nil
		},
	}
	a.rangeFlags(cmd)
	cmd.Flags().StringVar(&a.cfg.OutDir, "out-dir", a.cfg.OutDir, "directory for run_cat.json and run_cat.txt")
	cmd.Flags().StringVar(&a.cfg.SourceURL, "source-url", a.cfg.SourceURL, "provider base URL (mirror or pre-authenticated proxy)")
	cmd.Flags().StringVar(&a.cfg.SourceFile, "source-file", a.cfg.SourceFile, "read element sets from a local 3LE file instead")
	cmd.Flags().StringVar(&a.cfg.CacheDir, "cache-dir", a.cfg.CacheDir, "cache fetched windows here (disabled when empty)")
	cmd.Flags().IntVar(&a.cfg.CacheMaxFiles, "cache-max-files", a.cfg.CacheMaxFiles, "cached windows to keep")
	cmd.Flags().IntVar(&a.cfg.Workers, "workers", a.cfg.Workers, "windows fetched concurrently")
	cmd.Flags().IntVar(&a.cfg.Retries, "retries", a.cfg.Retries, "retries per window after the first attempt")
	cmd.Flags().DurationVar(&a.cfg.HTTPTimeout, "timeout", a.cfg.HTTPTimeout, "HTTP timeout per request")
	cmd.Flags().BoolVar(&a.cfg.Lenient, "lenient", a.cfg.Lenient, "skip malformed element sets instead of failing")
	return cmd
}

// source builds the retrieval collaborator for a run.
func (a *app) source() retrieve.Source {
	if a.cfg.SourceFile != "" {
		return retrieve.NewFileSource(a.cfg.SourceFile)
	}
	h := retrieve.NewHTTPSource(a.cfg.SourceURL, a.cfg.HTTPTimeout, a.logger)
	a.logger.Info("using provider", "base_url", h.BaseURL(), "cache_dir", a.cfg.CacheDir)
	var src retrieve.Source = h
	if a.cfg.CacheDir != "" {
		src = retrieve.NewCachingSource(src, a.cfg.CacheDir, a.cfg.CacheMaxFiles, a.logger)
	}
	return src
}

func writeRaw(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating raw dump: %w", err)
	}
	if err := res.WriteRaw(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *app) epochCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epoch",
		Short: "Select each object's element set nearest a target instant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.RunCatalog == "" {
				return fmt.Errorf("run-catalog is required")
			}
			target, err := a.cfg.TargetTime()
			if err != nil {
				return err
			}
			rc, err := catalog.LoadRun(a.cfg.RunCatalog)
			if err != nil {
				return err
			}

			ec := pipeline.Epoch(rc, target, a.logger)
			path := filepath.Join(a.cfg.OutDir, epochCatalogName)
			if err := catalog.SaveEpoch(path, ec); err != nil {
				return err
			}
			a.logger.Info("epoch catalog written", "path", path, "objects", ec.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&a.cfg.RunCatalog, "run-catalog", a.cfg.RunCatalog, "run catalog to select from")
	cmd.Flags().StringVar(&a.cfg.Target, "target", a.cfg.Target, "target instant, RFC3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&a.cfg.OutDir, "out-dir", a.cfg.OutDir, "directory for epoch_cat.json")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a run catalog over HTTP, reloading it when the file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.RunCatalog == "" {
				return fmt.Errorf("run-catalog is required")
			}
			logger := a.logger

			store := catalog.NewStore()
			watcher := catalog.NewWatcher(a.cfg.RunCatalog, store, 0, logger)
			if err := watcher.Load(); err != nil {
				// Not fatal: /readyz reports 503 until a valid catalog appears.
				logger.Warn("starting without a run catalog", "error", err)
			}

			srv := api.NewServer(api.Config{
				Addr:       a.cfg.Addr,
				TrustProxy: a.cfg.TrustProxy,
				Stream: stream.Config{
					MaxConcurrentPerIP: a.cfg.StreamMaxPerIP,
					KeepaliveInterval:  30 * time.Second,
				},
			}, store, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Error("catalog watcher stopped", "error", err)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", "addr", a.cfg.Addr, "run_catalog", a.cfg.RunCatalog)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server listen: %w", err)
				}
				return nil
			case <-ctx.Done():
			}
			logger.Info("shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&a.cfg.RunCatalog, "run-catalog", a.cfg.RunCatalog, "run catalog to serve")
	cmd.Flags().StringVar(&a.cfg.Addr, "addr", a.cfg.Addr, "listen address")
	cmd.Flags().IntVar(&a.cfg.StreamMaxPerIP, "stream-max-per-ip", a.cfg.StreamMaxPerIP, "concurrent event streams per client")
	cmd.Flags().BoolVar(&a.cfg.TrustProxy, "trust-proxy", a.cfg.TrustProxy, "identify clients by X-Forwarded-For / X-Real-IP")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print derived geometry for the latest element set of each object",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.RunCatalog == "" {
				return fmt.Errorf("run-catalog is required")
			}
			rc, err := catalog.LoadRun(a.cfg.RunCatalog)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NORAD\tRECORDS\tEPOCH\tPERIOD_MIN\tPERIGEE_KM\tAPOGEE_KM\tALT_KM\tLAT\tLON")
			failed := 0
			rc.Each(func(id int, history []tle.Record) {
				last := history[len(history)-1]
				g, err := orbit.Derive(last)
				if err != nil {
					failed++
					a.logger.Warn("geometry derivation failed", "norad_id", id, "error", err)
					fmt.Fprintf(tw, "%d\t%d\t-\t-\t-\t-\t-\t-\t-\n", id, len(history))
					return
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%.2f\t%.1f\t%.1f\t%.1f\t%.2f\t%.2f\n",
					id, len(history), g.Epoch.Format(time.RFC3339), g.PeriodMinutes,
					g.PerigeeAltKm, g.ApogeeAltKm, g.AtEpoch.AltitudeKm, g.AtEpoch.LatDeg, g.AtEpoch.LonDeg)
			})
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				a.logger.Warn("some objects could not be propagated", "failed", failed, "objects", rc.Len())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&a.cfg.RunCatalog, "run-catalog", a.cfg.RunCatalog, "run catalog to inspect")
	return cmd
}
