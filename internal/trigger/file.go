package trigger

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"

	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

// File watches a directory and fires for matching filesystem events.
// Repeated events for the same path and event type are suppressed for the
// debounce interval
type File struct {
	*Base
	watcher        *fsnotify.Watcher
	seen           *cache.Cache
	done           chan struct{}
	path           string
	patterns       []string
	ignorePatterns []string
	eventTypes     []string
	debounce       time.Duration
	recursive      bool
	ignoreDirs     bool
	wg             sync.WaitGroup
	mu             sync.Mutex
}

const (
	FileCreated  = "created"
	FileModified = "modified"
	FileDeleted  = "deleted"
	FileMoved    = "moved"

	defaultDebounce = 500 * time.Millisecond
	seenCleanup     = time.Minute
)

var allFileEvents = []string{FileCreated, FileModified, FileDeleted, FileMoved}

// NewFile creates a filesystem trigger watching the "path" option
func NewFile(name string, cfg api.Config) (*File, error) {
	f := &File{
		Base:           NewBase(KindFile, name, cfg),
		path:           cfg.String("path", "."),
		patterns:       cfg.Strings("patterns"),
		ignorePatterns: cfg.Strings("ignore_patterns"),
		eventTypes:     cfg.Strings("event_types"),
		ignoreDirs:     cfg.Bool("ignore_directories", false),
		recursive:      cfg.Bool("recursive", true),
		debounce:       cfg.Duration("debounce_interval", defaultDebounce),
	}
	f.bind(f)
	if len(f.patterns) == 0 {
		f.patterns = []string{"*"}
	}
	if len(f.eventTypes) == 0 {
		f.eventTypes = allFileEvents
	}
	for _, et := range f.eventTypes {
		if !slices.Contains(allFileEvents, et) {
			return nil, fmt.Errorf("%w: event type %q", ErrInvalidCondition, et)
		}
	}
	return f, nil
}

// Activate starts watching. The watched path must exist
func (f *File) Activate() error {
	if !f.markActive() {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.markInactive()
		return err
	}
	if err := f.watch(w, f.path); err != nil {
		_ = w.Close()
		f.markInactive()
		return err
	}

	f.mu.Lock()
	f.watcher = w
	f.seen = cache.New(f.debounce, seenCleanup)
	f.done = make(chan struct{})
	done := f.done
	f.mu.Unlock()

	f.wg.Go(func() {
		f.run(w, done)
	})
	slog.Info("Trigger activated",
		log.TriggerID(f.ID()),
		slog.String("kind", f.Kind()),
		slog.String("path", f.path))
	return nil
}

// Deactivate stops the watcher and waits for event delivery to finish
func (f *File) Deactivate() {
	if !f.markInactive() {
		return
	}
	f.mu.Lock()
	w, done := f.watcher, f.done
	f.watcher, f.done = nil, nil
	f.mu.Unlock()
	if done != nil {
		close(done)
	}
	if w != nil {
		_ = w.Close()
	}
	f.wg.Wait()
	slog.Info("Trigger deactivated", log.TriggerID(f.ID()))
}

func (f *File) watch(w *fsnotify.Watcher, root string) error {
	if !f.recursive {
		return w.Add(root)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}

func (f *File) run(w *fsnotify.Watcher, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			f.handle(w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error",
				log.TriggerID(f.ID()),
				log.Error(err))
		}
	}
}

func (f *File) handle(w *fsnotify.Watcher, ev fsnotify.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("File event handling panicked",
				log.TriggerID(f.ID()),
				slog.Any("panic", r))
		}
	}()

	eventType := fileEventType(ev.Op)
	if eventType == "" {
		return
	}

	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}
	if isDir && eventType == FileCreated && f.recursive {
		if err := f.watch(w, ev.Name); err != nil {
			slog.Warn("Failed to watch new directory",
				log.TriggerID(f.ID()),
				slog.String("path", ev.Name),
				log.Error(err))
		}
	}

	if !f.shouldProcess(eventType, ev.Name, isDir) || !f.IsActive() {
		return
	}

	data := api.EventData{
		"event_type":   eventType,
		"path":         ev.Name,
		"is_directory": isDir,
		"time":         time.Now().Unix(),
	}
	if eventType == FileMoved {
		data["src_path"] = ev.Name
	}
	f.Fire(data)
}

func (f *File) shouldProcess(eventType, path string, isDir bool) bool {
	if !slices.Contains(f.eventTypes, eventType) {
		return false
	}
	if isDir && f.ignoreDirs {
		return false
	}
	if matchAny(f.ignorePatterns, path) || !matchAny(f.patterns, path) {
		return false
	}
	if f.debounce <= 0 {
		return true
	}
	f.mu.Lock()
	seen := f.seen
	f.mu.Unlock()
	if seen == nil {
		return false
	}
	return seen.Add(eventType+":"+path, struct{}{}, f.debounce) == nil
}

func fileEventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return FileCreated
	case op&fsnotify.Write != 0:
		return FileModified
	case op&fsnotify.Remove != 0:
		return FileDeleted
	case op&fsnotify.Rename != 0:
		return FileMoved
	default:
		return ""
	}
}

// matchAny reports whether path matches a pattern. Patterns without a
// separator match the base name, others match the whole path
func matchAny(patterns []string, path string) bool {
	base := filepath.Base(path)
	for _, p := range patterns {
		target := base
		if filepath.Base(p) != p {
			target = path
		}
		if ok, _ := filepath.Match(p, target); ok {
			return true
		}
	}
	return false
}
