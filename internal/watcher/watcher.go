// Package watcher monitors the configuration file and triggers a reload
// when its content changes, so client configurations registered by an
// operator (or the management API) take effect without a restart.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/ecoflow-hq/supabase-auth/internal/config"
)

// Watcher watches one config file.
type Watcher struct {
	configPath string
	reload     func(*config.Config)
	watcher    *fsnotify.Watcher
	lastHash   string
}

// New creates a watcher. reload runs with the freshly parsed configuration
// whenever the file content actually changed.
func New(configPath string, reload func(*config.Config)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		configPath: configPath,
		reload:     reload,
		watcher:    fsWatcher,
		lastHash:   hashFile(configPath),
	}, nil
}

// Start begins watching until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.configPath); err != nil {
		log.Errorf("failed to watch config file %s: %v", w.configPath, err)
		return err
	}
	log.Debugf("watching config file: %s", w.configPath)

	go w.processEvents(ctx)
	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Atomic rename-based saves briefly remove the watched path;
			// re-add before reading.
			time.Sleep(100 * time.Millisecond)
			_ = w.watcher.Add(w.configPath)
			w.maybeReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) maybeReload() {
	hash := hashFile(w.configPath)
	if hash == "" || hash == w.lastHash {
		return
	}
	cfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		log.Errorf("failed to reload config: %v", err)
		return
	}
	w.lastHash = hash
	log.Infof("config file changed, reloading")
	w.reload(cfg)
}

func hashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
