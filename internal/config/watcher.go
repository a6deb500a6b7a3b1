package config

import (
	"os"
	"sync"
	"time"

	"github.com/munichmade/hostsctl/internal/logging"
)

// DefaultWatchInterval is how often watched files are polled.
const DefaultWatchInterval = 2 * time.Second

// Watcher polls the config file, and any extra files whose changes should
// produce a new hosts file (such as the rule database), and calls onChange
// with a freshly loaded Config.
type Watcher struct {
	path     string
	extra    []string
	onChange func(*Config)
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	lastMod  map[string]time.Time
	interval time.Duration
}

// NewWatcher creates a watcher for the config file at path and the extra
// files.
func NewWatcher(path string, onChange func(*Config), extra ...string) *Watcher {
	return &Watcher{
		path:     path,
		extra:    extra,
		onChange: onChange,
		stop:     make(chan struct{}),
		lastMod:  make(map[string]time.Time),
		interval: DefaultWatchInterval,
	}
}

// SetInterval changes the polling interval. It must be called before Start.
func (w *Watcher) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

// Start records the current modification times and begins polling.
func (w *Watcher) Start() error {
	if err := w.Resync(); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.watch()

	logging.Info("watcher started", "config", w.path, "extra", w.extra, "interval", w.interval)
	return nil
}

// Stop stops polling and waits for an in-flight callback to return.
func (w *Watcher) Stop() {
	close(w.stop)
	w.wg.Wait()
	logging.Info("watcher stopped")
}

// Resync records the current modification times as the baseline, so changes
// made by the caller itself are not reported.
func (w *Watcher) Resync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range w.files() {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				// Not created yet, that's okay
				delete(w.lastMod, p)
				continue
			}
			return err
		}
		w.lastMod[p] = info.ModTime()
	}
	return nil
}

func (w *Watcher) files() []string {
	return append([]string{w.path}, w.extra...)
}

func (w *Watcher) watch() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.checkForChanges()
		}
	}
}

// checkForChanges fires onChange at most once per poll, however many files
// changed.
func (w *Watcher) checkForChanges() {
	if !w.scan() {
		return
	}

	cfg, err := LoadFromFile(w.path)
	if err != nil {
		logging.Error("failed to reload config", "error", err)
		return
	}
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

func (w *Watcher) scan() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := false
	for _, p := range w.files() {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) && !w.lastMod[p].IsZero() {
				delete(w.lastMod, p)
				logging.Debug("watched file deleted", "path", p)
			}
			continue
		}
		if modTime := info.ModTime(); modTime.After(w.lastMod[p]) {
			w.lastMod[p] = modTime
			logging.Info("watched file changed", "path", p)
			changed = true
		}
	}
	return changed
}
