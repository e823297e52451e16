// Package mmap provides read-only memory-mapped access to input files
package mmap

import (
	"os"
	"sync"

	mmapgo "github.com/edsrzf/mmap-go"

	"github.com/ajitpratap0/toposplit/pkg/errors"
)

// Reader maps a whole file read-only. The slice returned by ReadAll stays
// valid until Close.
type Reader struct {
	file     *os.File
	data     mmapgo.MMap
	fileSize int64
	pageSize int

	bytesRead int64
	pagesRead int64

	mu     sync.RWMutex
	closed bool
}

// NewReader maps filename into memory
func NewReader(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").WithDetail("path", filename)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat file").WithDetail("path", filename)
	}

	fileSize := stat.Size()
	if fileSize == 0 {
		file.Close()
		return nil, errors.New(errors.ErrorTypeData, "file is empty").WithDetail("path", filename)
	}

	data, err := mmapgo.Map(file, mmapgo.RDONLY, 0)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to mmap file").WithDetail("path", filename)
	}

	return &Reader{
		file:     file,
		data:     data,
		fileSize: fileSize,
		pageSize: os.Getpagesize(),
	}, nil
}

// Size returns the mapped length in bytes
func (r *Reader) Size() int64 {
	return r.fileSize
}

// ReadAll returns the entire mapped file
func (r *Reader) ReadAll() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bytesRead = r.fileSize
	r.pagesRead = (r.fileSize + int64(r.pageSize) - 1) / int64(r.pageSize)
	return r.data
}

// Stats returns the bytes and pages handed out by ReadAll
func (r *Reader) Stats() (bytesRead, pagesRead int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bytesRead, r.pagesRead
}

// Close unmaps the file. It is safe to call more than once.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if r.data != nil {
		if err := r.data.Unmap(); err != nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeFile, "failed to unmap file")
		}
		r.data = nil
	}
	if err := r.file.Close(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, errors.ErrorTypeFile, "failed to close file")
	}
	return firstErr
}
