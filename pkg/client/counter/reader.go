// Package counter measures how many bytes of a response body have been read.
package counter

import (
	"errors"
	"io"
	"sync"
)

// OnClose is called once, when the body is closed for the first time.
type OnClose func(bytes int64, err error)

// ReadCloser wraps an io.ReadCloser (response body) to count bytes read from the reader.
type ReadCloser struct {
	wrapped   io.ReadCloser
	onClose   OnClose
	closeOnce sync.Once
	bytes     int64
	readErr   error
}

func NewReadCloser(wrapped io.ReadCloser, onClose OnClose) *ReadCloser {
	return &ReadCloser{wrapped: wrapped, onClose: onClose}
}

// Bytes returns number of bytes read so far.
func (w *ReadCloser) Bytes() int64 {
	return w.bytes
}

func (w *ReadCloser) Read(b []byte) (int, error) {
	n, err := w.wrapped.Read(b)
	w.bytes += int64(n)
	if err != nil {
		w.readErr = err
	}
	return n, err
}

func (w *ReadCloser) Close() error {
	closeErr := w.wrapped.Close()
	w.closeOnce.Do(func() {
		if w.onClose == nil {
			return
		}
		// Read error is reported before close error, EOF is not an error
		var err error
		if w.readErr != nil && !errors.Is(w.readErr, io.EOF) {
			err = w.readErr
		} else if closeErr != nil {
			err = closeErr
		}
		w.onClose(w.bytes, err)
	})
	return closeErr
}
