package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jrsteele09/go-par-server/clients"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const reloadDelay = 500 * time.Millisecond

// FileSettings is the YAML layout of the config file.
type FileSettings struct {
	OAuth struct {
		PAR struct {
			// Kept as raw text so a malformed value surfaces at issuance, not at load.
			ExpiryTime *string `yaml:"expiry_time"`
		} `yaml:"par"`
	} `yaml:"oauth"`
	Clients []clients.Client `yaml:"clients"`
}

// FileConfig holds the most recently loaded config file. It is safe for concurrent use.
type FileConfig struct {
	path     string
	mu       sync.RWMutex
	settings FileSettings
	onReload []func(FileSettings)
}

// LoadFile reads and parses the YAML file at path.
func LoadFile(path string) (*FileConfig, error) {
	f := &FileConfig{path: path}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileConfig) Path() string {
	return f.path
}

// Reload re-reads the file. On failure the previously loaded settings are kept.
func (f *FileConfig) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return errors.Wrapf(err, "[FileConfig.Reload] read %s", f.path)
	}

	var settings FileSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return errors.Wrapf(err, "[FileConfig.Reload] parse %s", f.path)
	}

	f.mu.Lock()
	f.settings = settings
	callbacks := append([]func(FileSettings){}, f.onReload...)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(settings)
	}
	return nil
}

// OnReload registers a callback run after every successful load.
func (f *FileConfig) OnReload(cb func(FileSettings)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onReload = append(f.onReload, cb)
}

func (f *FileConfig) GetParExpiryTime() (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.settings.OAuth.PAR.ExpiryTime == nil {
		return "", false
	}
	return *f.settings.OAuth.PAR.ExpiryTime, true
}

// Clients returns a copy of the clients declared in the file.
func (f *FileConfig) Clients() []clients.Client {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]clients.Client{}, f.settings.Clients...)
}

// Watch reloads the file whenever it changes until ctx is cancelled. The parent
// directory is watched so editors that replace the file are picked up.
func (f *FileConfig) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "[FileConfig.Watch] create watcher")
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "[FileConfig.Watch] watch %s", filepath.Dir(f.path))
	}

	reload := make(chan struct{}, 1)
	go f.scheduleReload(ctx, reload)
	go f.handleWatcher(ctx, watcher, reload)
	return nil
}

func (f *FileConfig) handleWatcher(ctx context.Context, watcher *fsnotify.Watcher, reload chan<- struct{}) {
	defer watcher.Close()
	name := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (f *FileConfig) scheduleReload(ctx context.Context, reload <-chan struct{}) {
	var timer *time.Timer
	var c <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-reload:
			if timer != nil {
				timer.Reset(reloadDelay)
			} else {
				timer = time.NewTimer(reloadDelay)
				c = timer.C
			}
		case <-c:
			timer, c = nil, nil
			if err := f.Reload(); err != nil {
				log.Error().Err(err).Str("path", f.path).Msg("config reload failed, keeping previous settings")
				continue
			}
			log.Info().Str("path", f.path).Msg("config reloaded")
		}
	}
}
