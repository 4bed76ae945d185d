package resource

import (
	"context"
	"io"
)

// Writer wraps an io.Writer with rate limiting.
type Writer struct {
	w   io.Writer
	rc  *Controller
	ctx context.Context
}

// NewWriter creates a rate-limited writer. A nil controller passes writes
// through untouched.
func NewWriter(ctx context.Context, w io.Writer, rc *Controller) *Writer {
	return &Writer{w: w, rc: rc, ctx: ctx}
}

func (w *Writer) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

// Reader wraps an io.Reader with rate limiting.
type Reader struct {
	r   io.Reader
	rc  *Controller
	ctx context.Context
}

// NewReader creates a rate-limited reader. A nil controller passes reads
// through untouched.
func NewReader(ctx context.Context, r io.Reader, rc *Controller) *Reader {
	return &Reader{r: r, rc: rc, ctx: ctx}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if aerr := r.rc.AcquireIO(r.ctx, n); aerr != nil {
			return n, aerr
		}
	}
	return n, err
}
