package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/star/tlecat/internal/config"
	"github.com/star/tlecat/internal/logging"
)

const longHelp = `
Consolidate orbital element sets for one orbit regime over a date range.

tlecat splits the range into windows the provider accepts, fetches every
window, groups the element sets by object and writes a run catalog. An epoch
catalog then keeps, per object, the element set nearest a chosen instant.
`

var exampleUsage = strings.TrimSpace(`
  tlecat chunks --regime leo --start 2024-01-01 --end 2024-01-08
  tlecat run --regime geo --start 2024-01-01 --end 2024-03-01 --source-url https://mirror.local
  tlecat epoch --run-catalog run_cat.json --target 2024-02-01T12:00:00Z
  tlecat serve --run-catalog run_cat.json --addr :8080
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app carries the settings shared by every subcommand.
type app struct {
	cfg     config.Config
	cfgPath string
	logger  *slog.Logger
}

func main() {
	a := &app{cfg: config.DefaultConfig()}

	root := &cobra.Command{
		Use:           "tlecat",
		Short:         "Build orbital element catalogs for an orbit regime and date range",
		Long:          strings.TrimSpace(longHelp),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.tlecat/config.toml)")
	root.PersistentFlags().StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "log format: json or text")

	root.AddCommand(
		a.chunksCmd(),
		a.runCmd(),
		a.epochCmd(),
		a.serveCmd(),
		a.inspectCmd(),
	)

	if err := root.Execute(); err != nil {
		logger := a.logger
		if logger == nil {
			logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
		}
		logger.Error("tlecat failed", "error", err)
		os.Exit(1)
	}
}

// load resolves configuration as defaults < file < TLECAT_* env < flags and
// builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := config.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: a.cfg.LogLevel, Format: a.cfg.LogFormat, Output: os.Stderr})
	if err != nil {
		return err
	}
	a.logger = logger
	a.logger.Debug("configuration", "command", cmd.Name(), "config", a.cfg)
	return nil
}
