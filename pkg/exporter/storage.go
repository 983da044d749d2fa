package exporter

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SlackBytes is added to every storage request on top of the payload size.
const SlackBytes = 512

// ErrQuotaExceeded is returned when a write would grow past the granted size.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// TemporaryStorage hands out quota-bound file systems under a root directory.
type TemporaryStorage struct {
	root string
}

// NewTemporaryStorage creates storage rooted at <dir>/temporary.
// An empty dir selects <os temp dir>/screencapture.
func NewTemporaryStorage(dir string) (*TemporaryStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "screencapture")
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}

	return &TemporaryStorage{root: filepath.Join(absPath, "temporary")}, nil
}

// Root returns the directory files are written to.
func (s *TemporaryStorage) Root() string {
	return s.root
}

// RequestFileSystem grants a file system able to hold size bytes.
func (s *TemporaryStorage) RequestFileSystem(size int64) (*FileSystem, error) {
	if size <= 0 {
		return nil, fmt.Errorf("requested size must be positive, got %d", size)
	}
	if err := os.MkdirAll(s.root, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	// Resolve symlinks once so containment checks compare like with like
	// (macOS /var -> /private/var).
	root, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate storage directory: %w", err)
	}

	return &FileSystem{root: root, quota: size}, nil
}

// FileSystem is a granted slice of temporary storage.
type FileSystem struct {
	root  string
	quota int64

	mu   sync.Mutex
	used int64
}

// Root returns the directory backing the file system.
func (fs *FileSystem) Root() string {
	return fs.root
}

// Quota returns the number of bytes granted.
func (fs *FileSystem) Quota() int64 {
	return fs.quota
}

// Create creates (or truncates) name inside the file system root.
func (fs *FileSystem) Create(name string) (*FileWriter, error) {
	path, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}

	return &FileWriter{fs: fs, file: file, path: path}, nil
}

// resolve maps name to an absolute path and rejects anything outside the root.
func (fs *FileSystem) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name cannot be empty")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("file name '%s' must be relative", name)
	}

	path := filepath.Clean(filepath.Join(fs.root, name))
	if !strings.HasPrefix(path, fs.root+string(filepath.Separator)) {
		return "", fmt.Errorf("file name '%s' is outside storage boundaries", name)
	}
	return path, nil
}

func (fs *FileSystem) reserve(n int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.used+n > fs.quota {
		return fmt.Errorf("%w: %d of %d bytes used, %d more requested", ErrQuotaExceeded, fs.used, fs.quota, n)
	}
	fs.used += n
	return nil
}

// FileWriter writes one file, charging every byte against the file system quota.
type FileWriter struct {
	fs   *FileSystem
	file *os.File
	path string
}

// Write implements io.Writer.
func (w *FileWriter) Write(p []byte) (int, error) {
	if err := w.fs.reserve(int64(len(p))); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// Close flushes and closes the underlying file.
func (w *FileWriter) Close() error {
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to sync %s: %w", w.path, err)
	}
	return w.file.Close()
}

// Path returns the absolute path of the file being written.
func (w *FileWriter) Path() string {
	return w.path
}

// FileURL returns a file:// URL for path.
func FileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
