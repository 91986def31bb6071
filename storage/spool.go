package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const filePrefix = "blur-"

// Spool hands out uniquely named temporary files, one per upload.
type Spool struct {
	dir    string
	logger *zap.Logger
}

func NewSpool(dir string, logger *zap.Logger) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Spool{dir: dir, logger: logger}, nil
}

func (s *Spool) Dir() string {
	return s.dir
}

// TempFile is owned by exactly one request and must be released by it.
type TempFile struct {
	Path   string
	Size   int64
	Digest string

	once   sync.Once
	logger *zap.Logger
}

// Persist copies r into a fresh file. On any error nothing is left on disk.
func (s *Spool) Persist(ctx context.Context, requestID string, r io.Reader, ext string) (*TempFile, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	f, err := os.CreateTemp(s.dir, filePrefix+sanitize(requestID)+"-*"+sanitize(ext))
	if err != nil {
		return nil, err
	}

	tmp := &TempFile{Path: f.Name(), logger: s.logger}

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, hash), &ctxReader{ctx: ctx, r: r})
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		tmp.Release()
		return nil, err
	}

	tmp.Size = n
	tmp.Digest = hex.EncodeToString(hash.Sum(nil))

	return tmp, nil
}

// Release removes the file. Safe to call more than once.
func (t *TempFile) Release() {
	t.once.Do(func() {
		if err := os.Remove(t.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.logger.Warn("Failed to remove temp file", zap.String("path", t.Path), zap.Error(err))
		}
	})
}

// Cleanup removes spool files older than maxAge, e.g. left behind by a crash.
func (s *Spool) Cleanup(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
