package prefs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/mesh-intelligence/organigrama/internal/atomicfile"
)

// FileStore keeps one file per key in a directory. Writes use an atomic
// rename, and Watch observes the directory with fsnotify.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating prefs directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Get implements Store.
func (s *FileStore) Get(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return s.read(key)
}

func (s *FileStore) read(key string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading preference %s: %w", key, err)
	}
	return string(bytes.TrimSpace(data)), nil
}

// Set implements Store.
func (s *FileStore) Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := atomicfile.WriteFile(filepath.Join(s.dir, key), []byte(value), 0o644); err != nil {
		return fmt.Errorf("writing preference %s: %w", key, err)
	}
	return nil
}

// Watch implements Store.
func (s *FileStore) Watch(ctx context.Context, key string) (<-chan string, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", s.dir, err)
	}

	last, _ := s.read(key)
	out := make(chan string, 1)

	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != key || !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				value, err := s.read(key)
				if err != nil {
					log.Warn().Err(err).Str("key", key).Msg("reading changed preference")
					continue
				}
				if value == "" || value == last {
					continue
				}
				last = value
				select {
				case out <- value:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("dir", s.dir).Msg("preference watcher error")
			}
		}
	}()

	return out, nil
}
