package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dchest/uniuri"
)

const disambiguatorLen = 8

var ErrInvalidName = errors.New("invalid object name")

// Backend stores uploaded images as files in a single flat directory.
type Backend struct {
	baseDir   string
	urlPrefix string
}

type Config struct {
	BaseDir   string // Directory holding the files
	URLPrefix string // Public path the directory is served under
}

func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	prefix := config.URLPrefix
	if prefix == "" {
		prefix = "/uploads"
	}

	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimSuffix(prefix, "/"),
	}, nil
}

// ObjectName builds a collision-resistant file name from the write time,
// a random disambiguator and the extension.
func ObjectName(ext string, now time.Time) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uniuri.NewLen(disambiguatorLen), ext)
}

func (b *Backend) Dir() string {
	return b.baseDir
}

// URL returns the public path of a stored object.
func (b *Backend) URL(name string) string {
	return b.urlPrefix + "/" + name
}

// Upload writes reader to a new file. Existing files are never overwritten,
// and a partially written file is removed.
func (b *Backend) Upload(ctx context.Context, name string, reader io.Reader) error {
	filePath, err := b.path(name)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(filePath)
		return fmt.Errorf("write file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(filePath)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, name string) error {
	filePath, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// Exists reports whether an object is present.
func (b *Backend) Exists(name string) bool {
	filePath, err := b.path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(filePath)
	return err == nil && info.Mode().IsRegular()
}

// Handler serves stored files read-only. Directory paths are 404.
func (b *Backend) Handler() http.Handler {
	files := http.FileServer(filesOnly{http.Dir(b.baseDir)})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

func (b *Backend) path(name string) (string, error) {
	if name == "" || name != path.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(b.baseDir, name), nil
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
