package downloader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	ytget "github.com/ytget/ytdlp/v2"
)

// NativeEngine downloads YouTube videos without the yt-dlp binary, using the
// pure-Go ytget client. Only YouTube URLs are supported.
type NativeEngine struct {
	Logger zerolog.Logger
}

// Name identifies the engine in logs.
func (e *NativeEngine) Name() string { return "ytget" }

// Fetch downloads a YouTube video into destDir.
func (e *NativeEngine) Fetch(ctx context.Context, rawURL, destDir, key string) (*Result, error) {
	if !isYouTubeURL(rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}

	dl := ytget.New().
		WithFormat("height<=720", "mp4").
		WithOutputPath(destDir).
		WithProgress(func(p ytget.Progress) {
			e.Logger.Debug().Float64("percent", p.Percent).Msg("download progress")
		})

	info, err := dl.Download(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("ytget error: %w", err)
	}
	if info == nil {
		return nil, ErrNoMedia
	}

	// ytget names the file after the sanitized title, not the key.
	path, err := findDownloadedFile(destDir, "")
	if err != nil {
		return nil, err
	}

	result := &Result{
		Title: info.Title,
		Ext:   strings.TrimPrefix(filepath.Ext(path), "."),
		Path:  path,
	}
	if result.Title == "" {
		result.Title = "Unknown"
	}
	if fi, err := os.Stat(path); err == nil {
		result.Size = fi.Size()
	}
	return result, nil
}

func isYouTubeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "youtube.com" || host == "m.youtube.com" || host == "youtu.be" || host == "music.youtube.com"
}
