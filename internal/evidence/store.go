// Package evidence persists rendered alert images to disk with a
// size-capped retention sweep.
package evidence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sentrylab/vigil/pkg/logger"
)

// Default store configuration constants.
const (
	defaultMaxBytes      = 4 << 30
	defaultSweepInterval = time.Minute
	filePrefix           = "detected_objects_"
	timestampLayout      = "20060102_150405"
)

// Store writes evidence JPEGs under a single directory and deletes the
// oldest files once the directory exceeds its byte cap.
type Store struct {
	dir           string
	maxBytes      int64
	sweepInterval time.Duration
	logger        logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithMaxBytes caps the directory size before old files are swept.
func WithMaxBytes(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithSweepInterval sets how often the retention sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates the directory if needed and returns a store over it.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence dir %s: %w", dir, err)
	}
	s := &Store{
		dir:           dir,
		maxBytes:      defaultMaxBytes,
		sweepInterval: defaultSweepInterval,
		logger:        logger.Get().Named("evidence"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save writes data as a timestamped JPEG and returns its path. A short
// random suffix keeps same-second saves from colliding.
func (s *Store) Save(ts time.Time, data []byte) (string, error) {
	name := fmt.Sprintf("%s%s_%s.jpg",
		filePrefix,
		ts.Format(timestampLayout),
		uuid.NewString()[:8],
	)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write evidence %s: %w", path, err)
	}
	return path, nil
}

// RunSweeper deletes oldest evidence files whenever the directory grows
// past the cap. It returns when ctx is canceled.
func (s *Store) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Warn(ctx, "evidence sweep failed", logger.Error(err))
			}
		}
	}
}

type fileInfo struct {
	path    string
	size    int64
	modTime time.Time
}

// sweep removes oldest files until the directory fits the cap again.
func (s *Store) sweep(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read evidence dir: %w", err)
	}

	var (
		files []fileInfo
		total int64
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(s.dir, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}
	if total <= s.maxBytes {
		return nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	removed := 0
	for _, f := range files {
		if total <= s.maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			s.logger.Warn(ctx, "failed to remove evidence file",
				logger.String("path", f.path),
				logger.Error(err),
			)
			continue
		}
		total -= f.size
		removed++
	}
	if removed > 0 {
		s.logger.Info(ctx, "evidence sweep removed old files",
			logger.Int("removed", removed),
			logger.Int64("remaining_bytes", total),
		)
	}
	return nil
}
