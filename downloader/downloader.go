// Package downloader fetches single media items from website URLs. The
// primary engine shells out to yt-dlp; a pure-Go fallback covers YouTube when
// the binary is missing.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Result describes a completed download. The file lives in Dir until the
// caller is done with it; Cleanup removes the whole directory.
type Result struct {
	Title string
	Ext   string
	Path  string
	Dir   string
	Size  int64
}

// ContentType returns the MIME type used when storing the file.
func (r *Result) ContentType() string {
	return ContentTypeForExt(r.Ext)
}

// MediaType returns "Video" or "Audio" for display.
func (r *Result) MediaType() string {
	if strings.HasPrefix(r.ContentType(), "video/") {
		return "Video"
	}
	return "Audio"
}

// Cleanup removes the temporary download directory.
func (r *Result) Cleanup() error {
	if r.Dir == "" {
		return nil
	}
	return os.RemoveAll(r.Dir)
}

// ContentTypeForExt maps a file extension to a MIME type. mp4 and webm count
// as video; everything else is treated as audio.
func ContentTypeForExt(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	switch ext {
	case "", "mp4", "webm":
		return "video/mp4"
	default:
		return "audio/" + ext
	}
}

// Engine fetches a single media item into destDir. The downloaded file name
// starts with key.
type Engine interface {
	Name() string
	Fetch(ctx context.Context, url, destDir, key string) (*Result, error)
}

// Prober detects playlist URLs before a download is attempted.
type Prober interface {
	IsPlaylist(ctx context.Context, url string) bool
}

// Options configures a Service.
type Options struct {
	Format      string
	CookiesFile string
	TempRoot    string // defaults to os.TempDir()
	Logger      zerolog.Logger
}

// Service coordinates the playlist probe, the engines and retries.
type Service struct {
	engine   Engine
	fallback Engine
	prober   Prober
	tempRoot string
	log      zerolog.Logger
}

// New builds a Service with the yt-dlp binary engine and the native YouTube
// fallback.
func New(opts Options) *Service {
	binary := &BinaryEngine{
		Format:      opts.Format,
		CookiesFile: opts.CookiesFile,
		Logger:      opts.Logger,
	}
	return &Service{
		engine:   binary,
		fallback: &NativeEngine{Logger: opts.Logger},
		prober:   binary,
		tempRoot: opts.TempRoot,
		log:      opts.Logger,
	}
}

// NewWithEngines builds a Service with explicit engines and prober.
func NewWithEngines(engine, fallback Engine, prober Prober, log zerolog.Logger) *Service {
	return &Service{engine: engine, fallback: fallback, prober: prober, log: log}
}

// Download fetches the media at url into a fresh temp directory. Playlist
// URLs are rejected with ErrPlaylist. The caller owns Result.Cleanup.
func (s *Service) Download(ctx context.Context, url string) (*Result, error) {
	if s.prober != nil && s.prober.IsPlaylist(ctx, url) {
		return nil, ErrPlaylist
	}

	root := s.tempRoot
	if root == "" {
		root = os.TempDir()
	}
	key := uuid.New().String()
	destDir := filepath.Join(root, "grabcast-"+key)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	s.log.Info().Str("url", url).Str("engine", s.engine.Name()).Msg("starting download")

	result, err := s.fetchWithRetry(ctx, s.engine, url, destDir, key)
	if err != nil && errors.Is(err, ErrBinaryNotFound) && s.fallback != nil {
		s.log.Warn().Str("engine", s.fallback.Name()).Msg("yt-dlp unavailable, trying fallback engine")
		result, err = s.fallback.Fetch(ctx, url, destDir, key)
	}
	if err != nil {
		os.RemoveAll(destDir)
		return nil, err
	}

	result.Dir = destDir
	s.log.Info().Str("title", result.Title).Int64("size", result.Size).Msg("download complete")
	return result, nil
}

// fetchWithRetry attempts the fetch once more after a short backoff.
func (s *Service) fetchWithRetry(ctx context.Context, engine Engine, url, destDir, key string) (*Result, error) {
	const maxRetries = 1
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			s.log.Debug().Int("attempt", attempt+1).Str("url", url).Msg("retrying download")
		}

		result, err := engine.Fetch(ctx, url, destDir, key)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// No point retrying when the binary is missing or the URL is bad.
		if errors.Is(err, ErrBinaryNotFound) || errors.Is(err, ErrUnsupportedURL) || ctx.Err() != nil {
			return nil, err
		}
		s.log.Debug().Err(err).Int("attempt", attempt+1).Msg("download attempt failed")
	}
	return nil, lastErr
}

// findDownloadedFile locates the file the engine wrote under destDir. The
// output template fixes the base name but the extension is up to the site.
func findDownloadedFile(destDir, key string) (string, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), key) {
			return filepath.Join(destDir, entry.Name()), nil
		}
	}
	// Some extractors ignore the template base; fall back to any file.
	for _, entry := range entries {
		if !entry.IsDir() {
			return filepath.Join(destDir, entry.Name()), nil
		}
	}
	return "", ErrNoMedia
}
