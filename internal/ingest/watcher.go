package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

type WatchConfig struct {
	Roots       []string // watched recursively
	InitialScan bool     // emit files already present
	SkipHidden  bool
	// Debounce coalesces the create/write bursts of one file copy.
	Debounce time.Duration
}

// Watch emits the path of every accepted image created or rewritten under
// cfg.Roots until ctx is done. Both channels are closed on return.
func Watch(ctx context.Context, cfg WatchConfig, log *zap.SugaredLogger) (<-chan string, <-chan error, error) {
	log = logger.OrNop(log)
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, errors.Wrap(err, "create watcher")
	}

	var initial []string
	for _, root := range cfg.Roots {
		if err := addTree(w, root, cfg.SkipHidden); err != nil {
			_ = w.Close()
			return nil, nil, err
		}
		if cfg.InitialScan {
			found, err := Discover(root, cfg.SkipHidden)
			if err != nil {
				_ = w.Close()
				return nil, nil, err
			}
			initial = append(initial, found...)
		}
	}
	log.Infow("ingest.watch.start", "roots", cfg.Roots, "initial", len(initial))

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)
	d := &debouncer{out: evCh, delay: cfg.Debounce, pending: map[string]struct{}{}}

	go func() {
		defer close(errCh)
		defer close(evCh)
		defer d.stop()
		defer func() { _ = w.Close() }()

		for _, p := range initial {
			select {
			case evCh <- p:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				log.Infow("ingest.watch.stop")
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if cfg.SkipHidden && IsHidden(e.Name) {
					continue
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := addTree(w, e.Name, cfg.SkipHidden); err != nil {
							log.Warnw("ingest.watch.add_dir_failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if Allowed(e.Name) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					d.add(ctx, e.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Errorw("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func addTree(w *fsnotify.Watcher, root string, skipHidden bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return errors.Wrapf(walkErr, "walk %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			return filepath.SkipDir
		}
		return errors.Wrapf(w.Add(path), "watch %s", path)
	})
}

// debouncer holds paths until no new event arrived for delay.
type debouncer struct {
	mu      sync.Mutex
	out     chan<- string
	delay   time.Duration
	timer   *time.Timer
	pending map[string]struct{}
	stopped bool
}

func (d *debouncer) add(ctx context.Context, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[path] = struct{}{}
	if d.delay <= 0 {
		d.flushLocked(ctx)
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.flushLocked(ctx)
	})
}

func (d *debouncer) flushLocked(ctx context.Context) {
	if d.stopped {
		return
	}
	for p := range d.pending {
		select {
		case d.out <- p:
		case <-ctx.Done():
			return
		}
		delete(d.pending, p)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
