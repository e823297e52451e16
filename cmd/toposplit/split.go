package main

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/toposplit/internal/partition"
	"github.com/ajitpratap0/toposplit/pkg/compression"
	"github.com/ajitpratap0/toposplit/pkg/config"
	"github.com/ajitpratap0/toposplit/pkg/logger"
	"github.com/ajitpratap0/toposplit/pkg/metrics"
	"github.com/ajitpratap0/toposplit/pkg/observability"
	"github.com/ajitpratap0/toposplit/pkg/sink"
	"github.com/ajitpratap0/toposplit/pkg/source"
)

func (a *app) splitCommand() *cobra.Command {
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split the nationwide topology into one file per state",
		Long: `Split reads the nationwide county topology and writes one TopoJSON file
per state into the output directory, named after the state with spaces
replaced by underscores (e.g. New_York.json).

Example:
  toposplit split --input counties-10m.json --output state_topojsons
  toposplit split --filter 'code in ["17", "19"]' --compression zstd`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd, config.FlagKeys)
			if err != nil {
				return err
			}
			return runSplit(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringP("input", "i", d.Input, "Nationwide topology file (.gz, .zst, .sz, .s2, .lz4 are decompressed)")
	f.StringP("output", "o", d.Output, "Directory receiving the per-state files")
	f.String("object", d.Object, "Geometry collection to split")
	f.String("encoding", d.Encoding, "Arc reference encoding (signed, complement)")
	f.IntP("workers", "w", d.Workers, "States written concurrently")
	f.String("filter", d.Filter, `Expression selecting states, e.g. 'code == "17"' or 'geometries > 100'`)
	f.String("indent", d.Indent, "Indent outputs with this string (default compact)")
	f.Bool("dry-run", d.DryRun, "Run every stage without writing files")
	f.String("compression", d.Compression.Algorithm, "Output compression (none, gzip, zstd, snappy, s2, lz4)")
	f.Int("compression-level", d.Compression.Level, "Compression level (1 fastest .. 9 best)")
	f.String("metrics-file", d.Observability.MetricsFile, "Write Prometheus metrics to this file after the run")
	f.Bool("trace", d.Observability.Tracing, "Export trace spans")
	f.String("trace-file", d.Observability.TraceFile, "Trace output file (default stdout)")

	return cmd
}

func runSplit(cmd *cobra.Command, cfg *config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	jobID := uuid.NewString()
	ctx := logger.WithJobID(cmd.Context(), jobID)
	runLog := logger.WithContext(ctx)

	provider, err := observability.InitTracing(observability.TracingConfig{
		Enabled:        cfg.Observability.Tracing,
		ServiceVersion: version,
		JobID:          jobID,
		Output:         cfg.Observability.TraceFile,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			runLog.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	filter, err := partition.CompileFilter(cfg.Filter)
	if err != nil {
		return err
	}

	var out sink.Sink = sink.Discard{}
	if cfg.DryRun {
		runLog.Info("dry run, no files will be written")
	} else {
		local := sink.NewLocal(cfg.Output, cfg.CompressionAlgorithm(), compression.Level(cfg.Compression.Level), log)
		if err := local.Prepare(); err != nil {
			return err
		}
		out = local
	}

	runLog.Info("loading topology", zap.String("input", cfg.Input))
	doc, in, err := source.Load(ctx, cfg.Input, log)
	if err != nil {
		return err
	}
	defer in.Close()

	runLog.Info("loaded topology",
		zap.String("size", humanize.Bytes(uint64(in.Size))),
		zap.String("compression", string(in.Algorithm)),
		zap.Int("arcs", len(doc.Arcs)))

	collector := metrics.NewCollector("toposplit")
	p := partition.New(out, partition.Options{
		Object:   cfg.Object,
		Encoding: cfg.RefEncoding(),
		Workers:  cfg.Workers,
		Indent:   cfg.Indent,
		Filter:   filter,
	}, log, collector)

	summary, err := p.Run(ctx, doc)
	if err != nil {
		return err
	}

	if cfg.Observability.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.Observability.MetricsFile); err != nil {
			return err
		}
	}

	fields := []zap.Field{
		zap.Int("states", len(summary.States)),
		zap.Int("skipped", summary.Skipped),
		zap.Int("excluded", summary.Excluded),
		zap.Int("filtered", summary.Filtered),
		zap.String("written", humanize.Bytes(uint64(summary.BytesWritten()))),
		zap.Duration("duration", summary.Duration),
	}
	if rss, ok := residentMemory(); ok {
		fields = append(fields, zap.String("rss", humanize.Bytes(rss)))
	}
	runLog.Info("split finished", fields...)

	if cfg.DryRun {
		printf(cmd.OutOrStdout(), "Would create %d state files in %s\n", len(summary.States), cfg.Output)
	} else {
		printf(cmd.OutOrStdout(), "Created %d state files in %s\n", len(summary.States), cfg.Output)
	}
	return nil
}

func residentMemory() (uint64, bool) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, false
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return 0, false
	}
	return mem.RSS, true
}
