package unionfs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// openFile is a cached physical file. It is closed once it has been evicted
// and no read is using it.
type openFile struct {
	f *os.File

	mu      sync.Mutex
	refs    int
	evicted bool
}

func (o *openFile) acquire() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.evicted {
		return false
	}
	o.refs++
	return true
}

func (o *openFile) release() {
	o.mu.Lock()
	o.refs--
	closeNow := o.evicted && o.refs == 0
	o.mu.Unlock()
	if closeNow {
		o.f.Close()
	}
}

func (o *openFile) evict() {
	o.mu.Lock()
	o.evicted = true
	closeNow := o.refs == 0
	o.mu.Unlock()
	if closeNow {
		o.f.Close()
	}
}

type openFiles struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *openFile]
	closed bool
}

func newOpenFiles(size int) (*openFiles, error) {
	cache, err := lru.NewWithEvict[string, *openFile](size, func(_ string, o *openFile) {
		o.evict()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create open file cache: %w", err)
	}
	return &openFiles{cache: cache}, nil
}

// get returns an acquired file for path. Callers must release it.
func (c *openFiles) get(path string) (*openFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o, ok := c.cache.Get(path); ok && o.acquire() {
		return o, nil
	}
	f, err := openSource(path)
	if err != nil {
		return nil, err
	}
	if c.closed {
		// closed on release
		return &openFile{f: f, refs: 1, evicted: true}, nil
	}
	o := &openFile{f: f, refs: 1}
	c.cache.Add(path, o)
	return o, nil
}

func (c *openFiles) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cache.Purge()
}

func (ix *Index) readAt(path string, p []byte, off int64) (int, error) {
	if ix.files == nil {
		f, err := openSource(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		return f.ReadAt(p, off)
	}
	o, err := ix.files.get(path)
	if err != nil {
		return 0, err
	}
	defer o.release()
	return o.f.ReadAt(p, off)
}

func (ix *Index) resolveFile(path string) (Winner, error) {
	w, err := ix.Resolve(path)
	if err != nil {
		return Winner{}, err
	}
	if w.Kind() != KindFile {
		return Winner{}, notFound(Clean(path))
	}
	return w, nil
}

// clamp returns how many bytes of a request of length at off can be served
// from a file of the given size.
func clamp(size, off int64, length int) int {
	remaining := size - off
	if remaining <= 0 {
		return 0
	}
	if int64(length) > remaining {
		return int(remaining)
	}
	return length
}

func (ix *Index) readWinner(ctx context.Context, w Winner, path string, p []byte, off int64) (int, error) {
	p = p[:clamp(w.Stat.Size, off, len(p))]
	if len(p) == 0 {
		return 0, nil
	}
	n, err := ix.readAt(w.Path, p, off)
	if err == io.EOF {
		// the file shrank after it was resolved
		err = nil
	}
	if err != nil {
		ix.logger.ErrorContext(ctx, "unionfs.ReadFile", "path", path, "physical", w.Path, "offset", off, "err", err)
		return n, ioError(path, err)
	}
	return n, nil
}

// ReadFileAt reads len(p) bytes, clamped to the size of the winning file,
// starting at off.
func (ix *Index) ReadFileAt(ctx context.Context, path string, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", fs.ErrInvalid, off)
	}
	w, err := ix.resolveFile(path)
	if err != nil {
		return 0, err
	}
	return ix.readWinner(ctx, w, Clean(path), p, off)
}

// ReadFile returns up to length bytes of the winning file starting at off.
// The buffer is sized to what the file can serve, so length may be larger
// than the file.
func (ix *Index) ReadFile(ctx context.Context, path string, off int64, length int) ([]byte, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("%w: bad range offset=%d length=%d", fs.ErrInvalid, off, length)
	}
	w, err := ix.resolveFile(path)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, clamp(w.Stat.Size, off, length))
	n, err := ix.readWinner(ctx, w, Clean(path), buf, off)
	return buf[:n], err
}
