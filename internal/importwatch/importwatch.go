// Package importwatch ingests snapshot files dropped into a directory.
// Other installations export snapshots; dropping one here imports it into
// the local store. Files are imported only after they stop changing, so a
// slow copy into the directory is not read half-written.
package importwatch

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/logger"
)

// Importer is the slice of the store the watcher needs.
type Importer interface {
	ImportAll(ctx context.Context, snap *domain.Snapshot) error
}

// Suffixes appended to processed files. Suffixed files are never
// re-imported.
const (
	SuffixImported = ".imported"
	SuffixFailed   = ".failed"
)

// Options configures a Watcher.
type Options struct {
	// Dir is the drop directory, created if absent.
	Dir string
	// SettleDelay is how long a file must stay unchanged before import.
	SettleDelay time.Duration
	Importer    Importer
	Logger      *logger.Logger
	// OnResult, when set, hears about every processed file. Tests use it;
	// the daemon leaves it nil.
	OnResult func(path string, err error)
}

// pendingFile tracks a dropped file that may still be changing.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// Watcher monitors the drop directory.
type Watcher struct {
	dir      string
	settle   time.Duration
	importer Importer
	logger   *logger.Logger
	onResult func(path string, err error)

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*pendingFile
}

// New creates the drop directory and starts watching it. Snapshot files
// already sitting in the directory at startup are imported too.
func New(opts Options) (*Watcher, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create import dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(opts.Dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch import dir: %w", err)
	}

	settle := opts.SettleDelay
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}

	return &Watcher{
		dir:      opts.Dir,
		settle:   settle,
		importer: opts.Importer,
		logger:   opts.Logger,
		onResult: opts.OnResult,
		fsw:      fsw,
		pending:  make(map[string]*pendingFile),
	}, nil
}

// Run processes events until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	// Pick up files dropped while the daemon was down
	entries, err := os.ReadDir(w.dir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				w.consider(ctx, filepath.Join(w.dir, entry.Name()))
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.cancelAll()
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.consider(ctx, event.Name)
			}
			if event.Op&fsnotify.Remove != 0 {
				w.cancel(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("import watcher error", "error", err)
		}
	}
}

// consider starts or restarts the settle timer for a candidate file.
func (w *Watcher) consider(ctx context.Context, path string) {
	if !isSnapshotFile(path) {
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if p, exists := w.pending[path]; exists {
		p.timer.Stop()
	}

	p := &pendingFile{size: info.Size(), modTime: info.ModTime()}
	p.timer = time.AfterFunc(w.settle, func() {
		w.checkSettled(ctx, path)
	})
	w.pending[path] = p
}

// checkSettled imports the file if it stopped changing, otherwise keeps
// waiting.
func (w *Watcher) checkSettled(ctx context.Context, path string) {
	w.mu.Lock()
	p, exists := w.pending[path]
	if !exists {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		w.mu.Unlock()
		return
	}

	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		// Still being written, restart the clock
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(w.settle, func() {
			w.checkSettled(ctx, path)
		})
		w.mu.Unlock()
		return
	}

	delete(w.pending, path)
	w.mu.Unlock()

	w.importFile(ctx, path)
}

// importFile runs one import and renames the file by outcome. A failed
// import leaves the store untouched and the file in place under a
// .failed suffix for inspection.
func (w *Watcher) importFile(ctx context.Context, path string) {
	err := w.tryImport(ctx, path)

	suffix := SuffixImported
	if err != nil {
		suffix = SuffixFailed
		w.logger.WithError(err).Error("snapshot import failed", "path", path)
	} else {
		w.logger.Info("snapshot imported", "path", path)
	}

	if renameErr := os.Rename(path, path+suffix); renameErr != nil {
		w.logger.Warn("failed to rename processed snapshot", "path", path, "error", renameErr)
	}

	if w.onResult != nil {
		w.onResult(path, err)
	}
}

func (w *Watcher) tryImport(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	return w.importer.ImportAll(ctx, &snap)
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, exists := w.pending[path]; exists {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) cancelAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// isSnapshotFile accepts *.json drops and rejects already-processed files.
func isSnapshotFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasSuffix(name, SuffixImported) || strings.HasSuffix(name, SuffixFailed) {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".json")
}
