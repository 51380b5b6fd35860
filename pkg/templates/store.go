package templates

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce lets editors finish writing before a reload.
const DefaultDebounce = 100 * time.Millisecond

// Store serves a catalog file and reloads it when the file changes.
type Store struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	catalog *Catalog
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore loads path. A missing file serves the default catalog until it appears.
func NewStore(path string, opts ...StoreOption) (*Store, error) {
	s := &Store{
		path:     path,
		debounce: DefaultDebounce,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Catalog returns the current catalog.
func (s *Store) Catalog() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Render renders with the current catalog.
func (s *Store) Render(t domain.TransactionType, n Network, values Values) (string, error) {
	return s.Catalog().Render(t, n, values)
}

// Reload re-reads the file. On error the previous catalog stays in place.
func (s *Store) Reload() error {
	cat, err := LoadCatalogFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.catalog = cat
	s.mu.Unlock()
	return nil
}

// Watch reloads the catalog whenever the file is written, created or renamed
// into place, and sends the file path after each successful reload. The
// directory is watched rather than the file so atomic replacements are seen.
// The channel closes when ctx ends.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	out := make(chan string, 1)
	go s.watch(ctx, watcher, out)
	return out, nil
}

func (s *Store) watch(ctx context.Context, watcher *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer watcher.Close()

	target := filepath.Clean(s.path)
	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if err := s.Reload(); err != nil {
				s.logger.Warn("Failed to reload templates", "path", s.path, "err", err)
				continue
			}
			s.logger.Info("Templates reloaded", "path", s.path)
			select {
			case out <- s.path:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Template watcher error", "err", err)
		}
	}
}
