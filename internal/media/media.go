// Package media stores uploaded recipe images on the local filesystem.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// URLPrefix is the public path under which stored files are served.
const URLPrefix = "/api/images/"

var (
	ErrNotFound    = errors.New("media: not found")
	ErrInvalidName = errors.New("media: invalid file name")
	ErrTooLarge    = errors.New("media: file too large")
)

var unsafeChars = regexp.MustCompile(`[\s&/\\?#|*<>:"']`)

// Store writes and reads files inside one directory.
type Store struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

// NewStore creates dir if needed. maxBytes <= 0 disables the size limit.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// SanitizeName replaces characters that are unsafe in URLs or paths with
// underscores.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Saved describes a stored upload.
type Saved struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Save copies r into a file named "<unix millis>_<sanitized original>".
// Partial files are removed when the copy fails or exceeds the limit.
func (s *Store) Save(original string, r io.Reader) (Saved, error) {
	base := SanitizeName(filepath.Base(original))
	if base == "" || base == "." || base == "_" {
		return Saved{}, ErrInvalidName
	}
	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + base
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Saved{}, fmt.Errorf("create %s: %w", name, err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return Saved{}, fmt.Errorf("write %s: %w", name, copyErr)
	case closeErr != nil:
		_ = os.Remove(path)
		return Saved{}, fmt.Errorf("close %s: %w", name, closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		_ = os.Remove(path)
		return Saved{}, ErrTooLarge
	}

	return Saved{Name: name, URL: URLPrefix + name, Size: n}, nil
}

// Open returns a reader for a stored file and its content type. Names that
// would leave the directory are rejected.
func (s *Store) Open(name string) (*os.File, string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return nil, "", ErrInvalidName
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, "", ErrNotFound
	}
	return f, ContentType(name), nil
}

// ContentType maps a file extension to the image MIME type served for it.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
