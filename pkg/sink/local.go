package sink

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/toposplit/pkg/compression"
	"github.com/ajitpratap0/toposplit/pkg/errors"
)

// Local writes outputs into a directory. Each file is written to a
// temporary name and renamed into place, so readers never observe a
// partial document.
type Local struct {
	dir       string
	algorithm compression.Algorithm
	level     compression.Level
	log       *zap.Logger

	once   sync.Once
	dirErr error
}

// NewLocal returns a sink writing into dir. The directory is created by
// Prepare, or on the first Put.
func NewLocal(dir string, algorithm compression.Algorithm, level compression.Level, log *zap.Logger) *Local {
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{dir: dir, algorithm: algorithm, level: level, log: log}
}

// Prepare creates the output directory if it is absent. Only the first call
// does any work.
func (l *Local) Prepare() error {
	l.once.Do(func() {
		if info, err := os.Stat(l.dir); err == nil {
			if !info.IsDir() {
				l.dirErr = errors.New(errors.ErrorTypeFile, "output path is not a directory").WithDetail("path", l.dir)
			}
			return
		}
		if err := os.MkdirAll(l.dir, 0o755); err != nil {
			l.dirErr = errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").WithDetail("path", l.dir)
			return
		}
		l.log.Info("created output directory", zap.String("path", l.dir))
	})
	return l.dirErr
}

// Put implements Sink. The compression extension, if any, is appended to name.
func (l *Local) Put(ctx context.Context, name string, data []byte) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, errors.Wrap(err, errors.ErrorTypeCanceled, "write canceled")
	}
	if err := l.Prepare(); err != nil {
		return Object{}, err
	}

	name += l.algorithm.Extension()
	path := filepath.Join(l.dir, name)

	tmp, err := os.CreateTemp(l.dir, "."+name+".tmp-*")
	if err != nil {
		return Object{}, errors.Wrap(err, errors.ErrorTypeFile, "failed to create temporary file").WithDetail("path", path)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	counter := &countingWriter{w: tmp}
	w, err := compression.NewWriter(counter, l.algorithm, l.level)
	if err != nil {
		cleanup()
		return Object{}, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create compressor")
	}
	if _, err := w.Write(data); err != nil {
		cleanup()
		return Object{}, errors.Wrap(err, errors.ErrorTypeFile, "failed to write output").WithDetail("path", path)
	}
	if err := w.Close(); err != nil {
		cleanup()
		return Object{}, errors.Wrap(err, errors.ErrorTypeFile, "failed to flush output").WithDetail("path", path)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return Object{}, errors.Wrap(err, errors.ErrorTypeFile, "failed to set output permissions").WithDetail("path", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Object{}, errors.Wrap(err, errors.ErrorTypeFile, "failed to close output").WithDetail("path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return Object{}, errors.Wrap(err, errors.ErrorTypeFile, "failed to move output into place").WithDetail("path", path)
	}

	return Object{Name: name, Location: path, Size: counter.n}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
