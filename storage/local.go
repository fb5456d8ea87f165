package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalBackend stores media in a directory on disk. Download links point at
// the backend's HTTP handler, which must be mounted under /files/ on the
// public base URL.
type LocalBackend struct {
	dir     string
	baseURL string
	log     zerolog.Logger
}

// NewLocal creates the files directory and returns the backend. baseURL is
// the externally reachable server address, e.g. "http://localhost:8000".
func NewLocal(dir, baseURL string, log zerolog.Logger) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create files directory: %w", err)
	}
	return &LocalBackend{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}, nil
}

// Put copies the file into the files directory under a fresh key.
func (b *LocalBackend) Put(ctx context.Context, localPath, filename, contentType string) (string, error) {
	key := uuid.New().String() + "." + extOf(filename)

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(b.dir, key))
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", key, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to store %s: %w", key, err)
	}
	b.log.Info().Str("key", key).Str("filename", filename).Msg("stored file")
	return key, nil
}

// URL returns the direct download link. Local links do not expire; ttl is
// ignored.
func (b *LocalBackend) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := os.Stat(filepath.Join(b.dir, filepath.Base(key))); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return b.baseURL + "/files/" + url.PathEscape(key), nil
}

// Delete removes the stored file.
func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(b.dir, filepath.Base(key)))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return err
}

// List returns stored files with the given key prefix.
func (b *LocalBackend) List(ctx context.Context, prefix string, maxKeys int) ([]Object, error) {
	if maxKeys <= 0 {
		maxKeys = 100
	}
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var objects []Object
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if len(objects) >= maxKeys {
			break
		}
		o := Object{Key: entry.Name()}
		if fi, err := entry.Info(); err == nil {
			o.Size = fi.Size()
			o.LastModified = fi.ModTime().UTC().Format(time.RFC3339)
		}
		objects = append(objects, o)
	}
	return objects, nil
}

// Info probes whether the files directory is usable.
func (b *LocalBackend) Info(ctx context.Context) Info {
	info := Info{Backend: "local", Endpoint: b.baseURL}
	if _, err := os.Stat(b.dir); err != nil {
		info.Error = err.Error()
		return info
	}
	info.Accessible = true
	return info
}

// Handler serves the files directory. Video and audio responses carry an
// attachment disposition so chat clients offer a download instead of inline
// playback.
func (b *LocalBackend) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := filepath.Base(path.Clean("/" + r.URL.Path))
		full := filepath.Join(b.dir, key)

		fi, err := os.Stat(full)
		if err != nil || fi.IsDir() {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}

		ctype := mime.TypeByExtension(filepath.Ext(key))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ctype)
		if strings.HasPrefix(ctype, "video/") || strings.HasPrefix(ctype, "audio/") {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", key))
		}
		http.ServeFile(w, r, full)
	})
}
