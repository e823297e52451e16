package partition

import (
	"bytes"
	"context"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/json"
	"github.com/ajitpratap0/toposplit/pkg/logger"
	"github.com/ajitpratap0/toposplit/pkg/metrics"
	"github.com/ajitpratap0/toposplit/pkg/observability"
	"github.com/ajitpratap0/toposplit/pkg/topology"
)

// FileExtension is appended to each state's file stem
const FileExtension = ".json"

// Assemble builds the document of one state: the nationwide type and
// transform, a single collection holding the rewritten members of b, and
// the arcs they use.
func Assemble(doc *topology.Document, geometries []topology.Geometry, b *Bucket, required *roaring.Bitmap, object string, enc topology.RefEncoding) (*topology.Document, *Remap, error) {
	remap := NewRemap(required)

	rewritten := make([]topology.Geometry, 0, len(b.Members))
	for _, pos := range b.Members {
		g, err := Rewrite(&geometries[pos], remap, enc)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrorTypeInvariant, "failed to rewrite geometry").
				WithDetail("state", b.State.Code).
				WithDetail("id", geometries[pos].ID.String())
		}
		rewritten = append(rewritten, g)
	}

	out := &topology.Document{
		Type:      doc.Type,
		Transform: json.RawMessage(bytes.Clone(doc.Transform)),
		Arcs:      remap.RestrictArcs(doc.Arcs),
	}
	if err := out.SetCollection(object, topology.NewCollection(rewritten)); err != nil {
		return nil, nil, err
	}
	return out, remap, nil
}

func (p *Partitioner) emitState(ctx context.Context, doc *topology.Document, geometries []topology.Geometry, b *Bucket, required *roaring.Bitmap) (result StateResult, err error) {
	ctx = logger.WithState(ctx, b.State.Code)
	log := logger.FromContext(ctx, p.logger)

	ctx, span := observability.NewSpan(ctx, "partition.emit")
	defer func() { span.End(err) }()
	span.SetAttribute("state", b.State.Code)

	log.Info("processing state",
		zap.String("name", b.State.Name),
		zap.Int("geometries", len(b.Members)),
		zap.Uint64("arcs", required.GetCardinality()))

	timer := metrics.NewTimer("emit")

	out, remap, err := Assemble(doc, geometries, b, required, p.opts.Object, p.opts.Encoding)
	if err != nil {
		return StateResult{}, err
	}

	data, err := json.Encode(out, p.opts.Indent)
	if err != nil {
		return StateResult{}, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode state document").
			WithDetail("state", b.State.Code)
	}

	obj, err := p.sink.Put(ctx, b.State.FileStem()+FileExtension, data)
	if err != nil {
		return StateResult{}, err
	}

	p.metrics.ObserveStage(timer.Name(), timer.Stop())
	p.metrics.RecordState(remap.Len(), obj.Size)
	span.SetAttribute("arcs", remap.Len())
	span.SetAttribute("bytes", obj.Size)

	log.Info("created state file",
		zap.String("location", obj.Location),
		zap.Int("arcs", remap.Len()),
		zap.String("size", humanize.Bytes(uint64(obj.Size))))

	return StateResult{
		Code:       b.State.Code,
		Name:       b.State.Name,
		Geometries: len(b.Members),
		Arcs:       remap.Len(),
		Output:     obj,
	}, nil
}
