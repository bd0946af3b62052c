// Package inbox imports CSV exports dropped into a directory.
package inbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"

	DefaultSettle = 500 * time.Millisecond
)

type importer interface {
	Import(ctx context.Context, owner uuid.UUID, r io.Reader) (int, error)
}

// Watcher imports every *.csv file that appears in dir into one owner's
// ledger. A file is picked up once it has stopped changing for the settle
// period and is then moved to processed/ or failed/.
type Watcher struct {
	dir     string
	owner   uuid.UUID
	records importer
	logger  *slog.Logger
	settle  time.Duration
}

func NewWatcher(dir string, owner uuid.UUID, records importer, logger *slog.Logger, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:     dir,
		owner:   owner,
		records: records,
		logger:  logger,
		settle:  settle,
	}
}

// Start imports files already in the directory, then watches it until ctx
// is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o755); err != nil {
			return fmt.Errorf("Start: %w", err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("Start: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("Start: %w", err)
	}

	w.logger.Info("inbox watching", "dir", w.dir, "owner_id", w.owner)
	w.sweep(ctx)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox stopped")
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if (ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) && isCSV(ev.Name) {
				pending[ev.Name] = time.Now()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", "error", err)
		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) >= w.settle {
					delete(pending, path)
					w.Process(ctx, path)
				}
			}
		}
	}
}

func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("failed to list inbox", "dir", w.dir, "error", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() && isCSV(e.Name()) {
			w.Process(ctx, filepath.Join(w.dir, e.Name()))
		}
	}
}

// Process imports one file and files it away. It returns the number of
// records imported.
func (w *Watcher) Process(ctx context.Context, path string) int {
	n, err := w.importFile(ctx, path)

	dest := ProcessedDir
	if err != nil {
		dest = FailedDir
		w.logger.Warn("inbox import failed", "file", filepath.Base(path), "error", err)
	} else {
		w.logger.Info("inbox imported", "file", filepath.Base(path), "records", n)
	}

	target := filepath.Join(w.dir, dest, filepath.Base(path))
	if err := os.Rename(path, target); err != nil && !os.IsNotExist(err) {
		w.logger.Error("failed to move inbox file", "file", path, "to", target, "error", err)
	}
	return n
}

func (w *Watcher) importFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("importFile: %w", err)
	}
	defer f.Close()

	n, err := w.records.Import(ctx, w.owner, f)
	if err != nil {
		return 0, fmt.Errorf("importFile: %w", err)
	}
	return n, nil
}

func isCSV(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".csv")
}
