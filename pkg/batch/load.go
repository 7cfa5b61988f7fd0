package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/diffnorris/pkg/cache"
	"github.com/sdejongh/diffnorris/pkg/decode"
	"github.com/sdejongh/diffnorris/pkg/graph"
	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/ratelimit"
	"github.com/sdejongh/diffnorris/pkg/storage"
)

// DefaultBufferSize is the read buffer used when loading documents
const DefaultBufferSize = 64 * 1024

// loader reads and decodes both documents of a pair
type loader struct {
	old, new   storage.Backend
	decoders   *decode.Auto
	limiter    *ratelimit.Limiter
	bufferPool *sync.Pool
}

func newLoader(old, new storage.Backend, decoders *decode.Auto, limiter *ratelimit.Limiter, bufferSize int) *loader {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &loader{
		old:      old,
		new:      new,
		decoders: decoders,
		limiter:  limiter,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// load reads both sides in parallel, hashes them and decodes them.
// Failures are recorded on the task, never returned.
func (l *loader) load(ctx context.Context, pair models.DocumentPair) *PairTask {
	start := time.Now()
	task := &PairTask{Pair: pair}
	defer func() { task.LoadDuration = time.Since(start) }()

	var oldData, newData []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		oldData, err = l.readAll(gctx, l.old, pair.Name1)
		if err != nil {
			return fmt.Errorf("old document %s: %w", pair.Name1, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		newData, err = l.readAll(gctx, l.new, pair.Name2)
		if err != nil {
			return fmt.Errorf("new document %s: %w", pair.Name2, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			task.Cancelled = true
			return task
		}
		task.Err = err
		return task
	}

	key := cache.KeyFor(oldData, newData, "")
	task.OldHash, task.NewHash = key.Old, key.New
	task.Identical = task.OldHash == task.NewHash && bytes.Equal(oldData, newData)

	var err error
	task.Old, err = l.decode(pair.Name1, oldData)
	if err != nil {
		task.Err = fmt.Errorf("old document %s: %w", pair.Name1, err)
		return task
	}
	if task.Identical {
		task.New = task.Old
		return task
	}
	task.New, err = l.decode(pair.Name2, newData)
	if err != nil {
		task.Err = fmt.Errorf("new document %s: %w", pair.Name2, err)
	}
	return task
}

func (l *loader) decode(name string, data []byte) (*graph.Node, error) {
	d, err := l.decoders.Resolve(name)
	if err != nil {
		return nil, err
	}
	return d.Decode(data)
}

// readAll streams a document into memory through a pooled buffer
func (l *loader) readAll(ctx context.Context, backend storage.Backend, name string) ([]byte, error) {
	reader, err := backend.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	// Apply bandwidth limiting if configured
	reader = ratelimit.NewReadCloser(ctx, reader, l.limiter)

	bufPtr := l.bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer l.bufferPool.Put(bufPtr)

	var out bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, err := reader.Read(buffer)
		if n > 0 {
			out.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
	}

	return out.Bytes(), nil
}
