package tweetstream

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Credentials is the username/password pair sent as HTTP Basic auth.
type Credentials struct {
	Username string
	Password string
}

// String masks the password so credentials are safe to log.
func (c Credentials) String() string {
	return c.Username + ":***"
}

// ParseCredentials parses a "user:password" pair. The password may itself contain colons.
func ParseCredentials(raw string) (Credentials, error) {
	raw = strings.TrimSpace(raw)
	user, pass, ok := strings.Cut(raw, ":")
	if !ok || user == "" {
		return Credentials{}, &InvalidParameterError{Param: "credentials", Reason: `expected "user:password"`}
	}
	return Credentials{Username: user, Password: pass}, nil
}

// CredentialsProvider supplies the credentials for new sessions. A session
// takes one snapshot at construction and keeps it for its whole lifetime.
type CredentialsProvider interface {
	Credentials() Credentials
}

// StaticCredentials is a CredentialsProvider for a fixed pair.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials() Credentials {
	return Credentials(s)
}

// FileCredentials is a CredentialsProvider backed by a file holding a single
// "user:password" line. The file's directory is watched so that both in-place
// writes and atomic rename rotations are picked up by sessions created afterwards.
type FileCredentials struct {
	path    string
	log     *slog.Logger
	watcher *fsnotify.Watcher

	mu    sync.RWMutex
	creds Credentials
}

// NewFileCredentials loads path and starts watching it for changes. Reload
// failures are logged to logger, or slog.Default() when it is nil.
func NewFileCredentials(path string, logger *slog.Logger) (*FileCredentials, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path = filepath.Clean(path)
	creds, err := readCredentialsFile(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("credentials watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	fc := &FileCredentials{path: path, log: logger, watcher: watcher, creds: creds}
	go fc.watch()
	return fc, nil
}

func (f *FileCredentials) watch() {
	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			// A rename over the file shows up as Create on its name.
			if filepath.Clean(event.Name) != f.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			creds, err := readCredentialsFile(f.path)
			if err != nil {
				f.log.Warn("credentials reload failed", slog.String("path", f.path), slog.Any("error", err))
				continue
			}
			f.mu.Lock()
			f.creds = creds
			f.mu.Unlock()
			f.log.Debug("credentials reloaded", slog.String("path", f.path), slog.String("user", creds.Username))
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.Warn("credentials watcher error", slog.String("path", f.path), slog.Any("error", err))
		}
	}
}

// Credentials returns the most recently loaded pair.
func (f *FileCredentials) Credentials() Credentials {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.creds
}

// Close stops watching the file.
func (f *FileCredentials) Close() error {
	return f.watcher.Close()
}

func readCredentialsFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials %s: %w", path, err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return ParseCredentials(line)
}
