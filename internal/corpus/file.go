package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"auroraqa/internal/domain"

	"github.com/fsnotify/fsnotify"
)

// FileSource reads a corpus dump from disk in the same JSON shapes the
// upstream API serves.
type FileSource struct {
	path   string
	logger *slog.Logger
}

func NewFileSource(path string, logger *slog.Logger) *FileSource {
	return &FileSource{path: path, logger: logger.With("component", "corpus.file")}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Load(_ context.Context) ([]domain.Message, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	msgs, _, err := decodeMessages(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return msgs, nil
}

// Watch calls onChange whenever the corpus file is written, replaced or
// removed, until ctx is done. The parent directory is watched so atomic
// renames by editors are seen.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
					s.logger.Info("corpus file changed", "path", s.path, "op", ev.Op.String())
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("corpus watcher error", "err", err)
			}
		}
	}()
	return nil
}
