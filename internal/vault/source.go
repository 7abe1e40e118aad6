package vault

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"zimp-go/internal/zimp"
)

// source is the stream a vault stores for one local file: the file itself,
// or its ciphertext when an Encryptor is configured. read counts the
// plaintext bytes taken from the file.
type source struct {
	io.Reader
	file   *os.File
	pipe   *io.PipeReader
	read   *atomic.Int64
	expect int64
}

// openSource opens path for storage. The caller must Close the source.
func openSource(ctx context.Context, path string, enc zimp.Encryptor) (*source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	s := &source{file: f, read: new(atomic.Int64), expect: info.Size()}
	plain := &countingReader{ctx: ctx, r: f, n: s.read}
	if enc == nil {
		s.Reader = plain
		return s, nil
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(enc.Encrypt(plain, pw))
	}()
	s.Reader = pr
	s.pipe = pr
	return s, nil
}

// verify checks that the whole file was consumed and did not change size.
func (s *source) verify() error {
	if n := s.read.Load(); n != s.expect {
		return fmt.Errorf("size mismatch: expected %d bytes, read %d", s.expect, n)
	}
	return nil
}

// plainSize returns the number of plaintext bytes read so far.
func (s *source) plainSize() int64 {
	return s.read.Load()
}

func (s *source) Close() error {
	if s.pipe != nil {
		s.pipe.Close()
	}
	return s.file.Close()
}

// countingReader counts bytes and stops once ctx is done.
type countingReader struct {
	ctx context.Context
	r   io.Reader
	n   *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// validID rejects ids that could escape a vault's namespace.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid object id %q", id)
	}
	return nil
}

// withContext returns a reader that fails once ctx is done.
func withContext(ctx context.Context, r io.Reader) io.Reader {
	return &countingReader{ctx: ctx, r: r, n: new(atomic.Int64)}
}
