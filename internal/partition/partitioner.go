// Package partition splits a nationwide county topology into one topology
// per state.
//
// # Overview
//
// A run has four stages:
//   - Group: assign each geometry to a state by its identifier
//   - Collect: compute the arc indices each state's geometries refer to
//   - Remap: renumber those indices densely and rewrite the references
//   - Emit: assemble one document per state and store it
//
// Each state document keeps the nationwide transform, carries only the arcs
// its geometries use, and is self-contained.
//
// # Basic Usage
//
//	p := partition.New(sink.NewLocal("state_topojsons", compression.None, compression.Default, log),
//	    partition.DefaultOptions(), log, metrics.NewCollector("toposplit"))
//	summary, err := p.Run(ctx, doc)
package partition

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/logger"
	"github.com/ajitpratap0/toposplit/pkg/metrics"
	"github.com/ajitpratap0/toposplit/pkg/observability"
	"github.com/ajitpratap0/toposplit/pkg/sink"
	"github.com/ajitpratap0/toposplit/pkg/topology"
)

// Options controls a run
type Options struct {
	Object   string               // geometry collection to partition and to emit
	Encoding topology.RefEncoding // how negative references are read
	Workers  int                  // states emitted concurrently
	Indent   string               // pretty-print outputs when non-empty
	Filter   *Filter              // nil selects every state
}

// DefaultOptions returns the options of a plain run
func DefaultOptions() Options {
	return Options{
		Object:   "counties",
		Encoding: topology.Signed,
		Workers:  1,
	}
}

// StateResult describes one emitted state
type StateResult struct {
	Code       string
	Name       string
	Geometries int
	Arcs       int
	Output     sink.Object
}

// Summary describes a completed run
type Summary struct {
	States     []StateResult // emission order
	Geometries int           // geometries in the input collection
	Grouped    int
	Skipped    int // unknown state key
	Excluded   int // no identifier
	Filtered   int // states rejected by the filter
	Duration   time.Duration
}

// BytesWritten returns the total size of all outputs
func (s *Summary) BytesWritten() int64 {
	var n int64
	for _, r := range s.States {
		n += r.Output.Size
	}
	return n
}

// Partitioner runs the split of one document into per-state documents
type Partitioner struct {
	sink    sink.Sink
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New creates a partitioner storing outputs in s. A nil collector disables
// metrics.
func New(s sink.Sink, opts Options, log *zap.Logger, collector *metrics.Collector) *Partitioner {
	if opts.Object == "" {
		opts.Object = "counties"
	}
	if opts.Encoding == nil {
		opts.Encoding = topology.Signed
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	if collector == nil {
		collector = metrics.NewCollector("toposplit")
	}

	return &Partitioner{
		sink:    s,
		opts:    opts,
		logger:  log,
		metrics: collector,
	}
}

// Run splits doc. doc is read but never modified. Any error is fatal for
// the whole run; outputs already stored are left in place.
func (p *Partitioner) Run(ctx context.Context, doc *topology.Document) (summary *Summary, err error) {
	start := time.Now()
	log := logger.FromContext(ctx, p.logger)

	ctx, span := observability.NewSpan(ctx, "partition.run")
	defer func() { span.End(err) }()

	collection, err := doc.Collection(p.opts.Object)
	if err != nil {
		return nil, err
	}
	geometries := collection.Geometries

	log.Info("grouping geometries by state",
		zap.String("object", p.opts.Object),
		zap.Int("geometries", len(geometries)),
		zap.Int("arcs", len(doc.Arcs)))

	timer := metrics.NewTimer("group")
	grouping := Group(geometries, log)
	p.metrics.ObserveStage(timer.Name(), timer.Stop())
	p.metrics.RecordGeometries(metrics.OutcomeGrouped, grouping.Grouped())
	p.metrics.RecordGeometries(metrics.OutcomeUnknownState, grouping.Skipped)
	p.metrics.RecordGeometries(metrics.OutcomeMissingID, grouping.Excluded)

	log.Info("found geometries for states",
		zap.Int("states", len(grouping.Buckets)),
		zap.Int("skipped", grouping.Skipped),
		zap.Int("excluded", grouping.Excluded))

	log.Info("analyzing arc references")
	timer = metrics.NewTimer("collect")
	cache, err := collectReferences(geometries, grouping, p.opts.Encoding, len(doc.Arcs))
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage(timer.Name(), timer.Stop())

	summary = &Summary{
		Geometries: len(geometries),
		Grouped:    grouping.Grouped(),
		Skipped:    grouping.Skipped,
		Excluded:   grouping.Excluded,
	}

	buckets := make([]*Bucket, 0, len(grouping.Buckets))
	for _, b := range grouping.Buckets {
		ok, err := p.opts.Filter.Match(b.State, len(b.Members))
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Debug("state excluded by filter",
				zap.String("state", b.State.Code),
				zap.String("filter", p.opts.Filter.String()))
			p.metrics.RecordFiltered()
			summary.Filtered++
			continue
		}
		buckets = append(buckets, b)
	}

	log.Info("creating state files",
		zap.Int("states", len(buckets)),
		zap.Int("workers", p.opts.Workers))

	results := make([]StateResult, len(buckets))
	if p.opts.Workers == 1 || len(buckets) < 2 {
		for i, b := range buckets {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeCanceled, "split canceled")
			}
			if results[i], err = p.emitState(ctx, doc, geometries, b, cache.required(b)); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.Workers)
		for i, b := range buckets {
			i, b := i, b
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return errors.Wrap(err, errors.ErrorTypeCanceled, "split canceled")
				}
				r, err := p.emitState(gctx, doc, geometries, b, cache.required(b))
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	summary.States = results
	summary.Duration = time.Since(start)

	span.SetAttribute("states", len(results))
	span.SetAttribute("skipped", summary.Skipped)

	log.Info("split completed",
		zap.Int("states_written", len(results)),
		zap.Int("geometries", summary.Grouped),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}
