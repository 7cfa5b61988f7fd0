// Package ratelimit throttles document reads to a byte rate shared across
// all readers of a run.
package ratelimit

import (
	"context"
	"io"
	"math"

	"golang.org/x/time/rate"
)

// MinBurst is the smallest burst allowed, so small limits still read in
// reasonably sized chunks
const MinBurst = 64 * 1024

// Limiter controls the rate of data transfer across multiple readers
type Limiter struct {
	bytesPerSecond int64
	limiter        *rate.Limiter
}

// NewLimiter creates a limiter for bytesPerSecond.
// It returns nil, meaning no limiting, when bytesPerSecond <= 0.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	// One second worth of data, at least MinBurst
	burst := max(bytesPerSecond, MinBurst)
	if burst > math.MaxInt32 {
		burst = math.MaxInt32
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		limiter:        rate.NewLimiter(rate.Limit(bytesPerSecond), int(burst)),
	}
}

// BytesPerSecond returns the configured rate
func (l *Limiter) BytesPerSecond() int64 { return l.bytesPerSecond }

// Burst returns the largest chunk a single read may consume
func (l *Limiter) Burst() int { return l.limiter.Burst() }

// WaitN blocks until n bytes may be consumed or ctx is done
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	return l.limiter.WaitN(ctx, n)
}

// Reader wraps an io.Reader with bandwidth limiting
type Reader struct {
	reader  io.Reader
	limiter *Limiter
	ctx     context.Context
}

// NewReader wraps an io.Reader with rate limiting
func NewReader(ctx context.Context, reader io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return reader
	}
	return &Reader{reader: reader, limiter: limiter, ctx: ctx}
}

// Read reads at most one burst, then waits for the bytes read
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	if burst := r.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := r.reader.Read(p)
	if n > 0 {
		if werr := r.limiter.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// ReadCloser wraps an io.ReadCloser with rate limiting
type ReadCloser struct {
	Reader
	closer io.Closer
}

// NewReadCloser wraps an io.ReadCloser with rate limiting
func NewReadCloser(ctx context.Context, rc io.ReadCloser, limiter *Limiter) io.ReadCloser {
	if limiter == nil {
		return rc
	}
	return &ReadCloser{
		Reader: Reader{reader: rc, limiter: limiter, ctx: ctx},
		closer: rc,
	}
}

// Close implements io.Closer
func (rc *ReadCloser) Close() error {
	return rc.closer.Close()
}
