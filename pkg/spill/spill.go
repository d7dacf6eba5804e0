// Package spill provides a memory-efficient byte sink that spools to a
// temporary file once it grows past a configured threshold. Used by
// extensions (pkg/extensions/rewrite) that must materialize a full response
// body before they can transform it, without holding arbitrarily large
// bodies in memory.
package spill

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/proxycore/httprelay/pkg/constants"
	"github.com/proxycore/httprelay/pkg/perror"
)

// sink is the active storage strategy for a Buffer: either an in-memory
// byte slice or a spooled temp file. Buffer promotes from one to the other
// exactly once, the first time a write would cross the memory limit.
type sink interface {
	io.Writer
	reader() (io.ReadCloser, error)
	close() error
}

// memSink accumulates bytes in memory; it is every Buffer's starting sink.
type memSink struct {
	buf bytes.Buffer
}

func (m *memSink) Write(p []byte) (int, error) { return m.buf.Write(p) }

func (m *memSink) reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.buf.Bytes())), nil
}

func (m *memSink) close() error { return nil }

// diskSink spools to a temp file. seed carries whatever the memSink being
// promoted had already accumulated.
type diskSink struct {
	f    *os.File
	path string
}

func newDiskSink(seed []byte) (*diskSink, error) {
	f, err := os.CreateTemp("", "httprelay-spill-*.tmp")
	if err != nil {
		return nil, perror.NewIOBroken("create_temp_file", err)
	}
	d := &diskSink{f: f, path: f.Name()}
	if len(seed) > 0 {
		if _, err := f.Write(seed); err != nil {
			d.close()
			return nil, perror.NewIOBroken("write_temp_file", err)
		}
	}
	return d, nil
}

func (d *diskSink) Write(p []byte) (int, error) {
	n, err := d.f.Write(p)
	if err != nil {
		return n, perror.NewIOBroken("write_temp_file", err)
	}
	return n, nil
}

func (d *diskSink) reader() (io.ReadCloser, error) {
	if err := d.f.Sync(); err != nil {
		return nil, perror.NewIOBroken("sync_temp_file", err)
	}
	f, err := os.Open(d.path)
	if err != nil {
		return nil, perror.NewIOBroken("open_temp_file", err)
	}
	return f, nil
}

func (d *diskSink) close() error {
	err := d.f.Close()
	if removeErr := os.Remove(d.path); removeErr != nil && err == nil {
		err = perror.NewIOBroken("remove_temp_file", removeErr)
	}
	if err != nil {
		return perror.NewIOBroken("close_temp_file", err)
	}
	return nil
}

// Buffer is a byte sink that starts in memory and promotes itself to a
// spooled temp file the moment a write would exceed limit. Safe for
// sequential use by one writer; Close is safe to call from a deferred
// cleanup regardless of which sink is currently active.
type Buffer struct {
	mu     sync.Mutex
	sink   sink
	limit  int64
	closed bool
}

// New returns a Buffer that spills once more than limit bytes accumulate in
// memory. limit <= 0 uses constants.DefaultBodyMemLimit.
func New(limit int64) *Buffer {
	if limit <= 0 {
		limit = constants.DefaultBodyMemLimit
	}
	return &Buffer{limit: limit, sink: &memSink{}}
}

// Write appends p, promoting to a temp file first if p would push the
// in-memory sink past the configured limit.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, perror.NewIOBroken("write", nil)
	}

	if mem, ok := b.sink.(*memSink); ok && int64(mem.buf.Len()+len(p)) > b.limit {
		disk, err := newDiskSink(mem.buf.Bytes())
		if err != nil {
			return 0, err
		}
		b.sink = disk
	}

	return b.sink.Write(p)
}

// Reader returns a fresh reader over everything written so far. The caller
// owns the returned ReadCloser and must close it.
func (b *Buffer) Reader() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, perror.NewIOBroken("read", nil)
	}
	return b.sink.reader()
}

// Close releases the active sink (removing the temp file, if one was
// created). Idempotent and safe to call more than once.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.sink.close()
}
