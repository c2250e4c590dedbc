package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/utils"
)

// DefaultSettleDelay is how long a file must stay quiet before it is imported.
const DefaultSettleDelay = 250 * time.Millisecond

// Watcher imports every image file that appears in, or is rewritten in, a directory.
type Watcher struct {
	dir      string
	importer *Importer
	onImport func(Overlay, error)
	logger   logging.Logger
	delay    time.Duration

	fsWatcher *fsnotify.Watcher
	workers   utils.StoppableWorkers

	mu         sync.Mutex
	debouncers map[string]func(func())
}

// NewWatcher starts watching dir. onImport is called once per settled file, each on its own
// goroutine. A delay of zero uses DefaultSettleDelay.
func NewWatcher(
	dir string,
	importer *Importer,
	delay time.Duration,
	onImport func(Overlay, error),
	logger logging.Logger,
) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultSettleDelay
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "cannot watch %s", dir), fsWatcher.Close())
	}
	w := &Watcher{
		dir:        dir,
		importer:   importer,
		onImport:   onImport,
		logger:     logger,
		delay:      delay,
		fsWatcher:  fsWatcher,
		debouncers: map[string]func(func()){},
	}
	w.workers = utils.NewStoppableWorkers(w.watch)
	return w, nil
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("watch error", "dir", w.dir, "error", err)
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isCandidate(event.Name) {
				continue
			}
			w.schedule(event.Name)
		}
	}
}

// isCandidate skips hidden files, which is where editors and downloaders keep partial writes.
func isCandidate(path string) bool {
	return !strings.HasPrefix(filepath.Base(path), ".") && utils.IsImagePath(path)
}

// schedule imports path once events for it have been quiet for the settle delay.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	debounced, ok := w.debouncers[path]
	if !ok {
		debounced = debounce.New(w.delay)
		w.debouncers[path] = debounced
	}
	w.mu.Unlock()

	debounced(func() {
		w.mu.Lock()
		delete(w.debouncers, path)
		w.mu.Unlock()

		w.workers.AddWorkers(func(ctx context.Context) {
			w.logger.CDebugw(ctx, "importing", "path", path)
			overlay, err := w.importer.Import(ctx, path)
			goutils.PanicCapturingGo(func() { w.onImport(overlay, err) })
		})
	})
}

// Close stops watching and waits for imports in progress. onImport may call Close.
func (w *Watcher) Close() error {
	err := w.fsWatcher.Close()
	w.workers.Stop()
	return err
}
