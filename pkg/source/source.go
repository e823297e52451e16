// Package source loads topology documents from local files. Plain files are
// memory-mapped; compressed files are detected by extension and decoded
// into memory.
package source

import (
	"bytes"
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/ajitpratap0/toposplit/pkg/compression"
	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/mmap"
	"github.com/ajitpratap0/toposplit/pkg/topology"
)

// Input is an opened input file. Raw members of a document decoded from
// Data may alias the mapping, so Close must not be called before the
// document is no longer used.
type Input struct {
	Path      string
	Algorithm compression.Algorithm
	Data      []byte
	Size      int64 // bytes on disk
	reader    *mmap.Reader
}

// Open opens path for decoding
func Open(path string, log *zap.Logger) (*Input, error) {
	if log == nil {
		log = zap.NewNop()
	}

	algorithm := compression.FromPath(path)
	if algorithm == compression.None {
		r, err := mmap.NewReader(path)
		if err != nil {
			return nil, err
		}
		data := r.ReadAll()
		bytesRead, pagesRead := r.Stats()
		log.Debug("mapped input",
			zap.String("path", path),
			zap.Int64("bytes", bytesRead),
			zap.Int64("pages", pagesRead))
		return &Input{
			Path:      path,
			Algorithm: algorithm,
			Data:      data,
			Size:      r.Size(),
			reader:    r,
		}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").WithDetail("path", path)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat file").WithDetail("path", path)
	}

	dec, err := compression.NewReader(f, algorithm)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open compressed input").
			WithDetail("path", path).
			WithDetail("algorithm", string(algorithm))
	}
	defer dec.Close()

	var buf bytes.Buffer
	buf.Grow(int(4 * stat.Size()))
	if _, err := buf.ReadFrom(dec); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decompress input").
			WithDetail("path", path).
			WithDetail("algorithm", string(algorithm))
	}
	data := buf.Bytes()
	if len(data) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "file is empty").WithDetail("path", path)
	}

	log.Debug("decompressed input",
		zap.String("path", path),
		zap.String("algorithm", string(algorithm)),
		zap.Int64("compressed_bytes", stat.Size()),
		zap.Int("bytes", len(data)))

	return &Input{
		Path:      path,
		Algorithm: algorithm,
		Data:      data,
		Size:      stat.Size(),
	}, nil
}

// Decode parses the input as a topology document
func (in *Input) Decode() (*topology.Document, error) {
	doc, err := topology.Decode(in.Data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode topology").WithDetail("path", in.Path)
	}
	if doc.Type != topology.TypeTopology {
		return nil, errors.Newf(errors.ErrorTypeData, "unexpected document type %q", doc.Type).WithDetail("path", in.Path)
	}
	return doc, nil
}

// Close releases the mapping, if any
func (in *Input) Close() error {
	if in.reader == nil {
		return nil
	}
	return in.reader.Close()
}

// Load opens and decodes path. The returned Input must be closed once the
// document is no longer needed.
func Load(ctx context.Context, path string, log *zap.Logger) (*topology.Document, *Input, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeCanceled, "load canceled")
	}

	in, err := Open(path, log)
	if err != nil {
		return nil, nil, err
	}

	doc, err := in.Decode()
	if err != nil {
		in.Close()
		return nil, nil, err
	}
	return doc, in, nil
}
