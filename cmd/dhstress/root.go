package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thepudds/doublehash/internal/workload"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		flagCfg    = workload.DefaultConfig()
	)

	cmd := &cobra.Command{
		Use:   "dhstress",
		Short: "stress a doublehash.Map with concurrent writers and readers",
		Long: `dhstress inserts every key of a range from several writers while
readers get the same range, then checks that no read saw a wrong value,
that every key is present, and that Len equals inserts minus deletes.

Settings come from the defaults, then the --config TOML file, then any
flags given explicitly.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := workload.DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = workload.LoadConfig(configPath); err != nil {
					return err
				}
			}
			applyFlags(cmd.Flags(), &cfg, flagCfg)

			logger, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := workload.Run(ctx, cfg, logger)
			if err != nil {
				return errors.Wrap(err, "running workload")
			}
			logger.Info("workload finished", zap.Object("report", report))
			if !report.OK() {
				return errors.Errorf("workload failed: len %d (want %d), %d torn reads, %d missing, %d unexpected, %d panics",
					report.Len, report.ExpectedLen, report.TornReads, report.Missing, report.Unexpected, report.Panics)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: len %d, distinct %d, cap %d, resizes %d, elapsed %v\n",
				report.Len, report.Distinct, report.Cap, report.Stats.Resizes, report.Elapsed)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "TOML file with workload settings")
	f.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.IntVar(&flagCfg.Writers, "writers", flagCfg.Writers, "number of writer tasks")
	f.IntVar(&flagCfg.Readers, "readers", flagCfg.Readers, "number of reader tasks")
	f.Int32Var(&flagCfg.KeyFrom, "from", flagCfg.KeyFrom, "first key of the range")
	f.Int32Var(&flagCfg.KeyTo, "to", flagCfg.KeyTo, "end of the key range (exclusive)")
	f.IntVar(&flagCfg.Rounds, "rounds", flagCfg.Rounds, "passes over the key range per task")
	f.IntVar(&flagCfg.DeleteEvery, "delete-every", flagCfg.DeleteEvery, "writers delete every nth key after inserting it (0 disables)")
	f.IntVar(&flagCfg.InitialCapacity, "capacity", flagCfg.InitialCapacity, "initial number of slots")
	f.IntVar(&flagCfg.PoolSize, "pool-size", flagCfg.PoolSize, "goroutines in the worker pool")
	return cmd
}

// applyFlags copies the flags the user set explicitly from flagCfg into cfg.
func applyFlags(fs *pflag.FlagSet, cfg *workload.Config, flagCfg workload.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "writers":
			cfg.Writers = flagCfg.Writers
		case "readers":
			cfg.Readers = flagCfg.Readers
		case "from":
			cfg.KeyFrom = flagCfg.KeyFrom
		case "to":
			cfg.KeyTo = flagCfg.KeyTo
		case "rounds":
			cfg.Rounds = flagCfg.Rounds
		case "delete-every":
			cfg.DeleteEvery = flagCfg.DeleteEvery
		case "capacity":
			cfg.InitialCapacity = flagCfg.InitialCapacity
		case "pool-size":
			cfg.PoolSize = flagCfg.PoolSize
		}
	})
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "parsing log level %q", level)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logger, nil
}
