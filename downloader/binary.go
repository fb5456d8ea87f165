package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
)

const progressInterval = 500 * time.Millisecond

// BinaryEngine drives the yt-dlp executable.
type BinaryEngine struct {
	Format      string
	CookiesFile string
	Logger      zerolog.Logger
}

// Name identifies the engine in logs.
func (e *BinaryEngine) Name() string { return "yt-dlp" }

// Fetch downloads a single item via yt-dlp into destDir/<key>.<ext>.
func (e *BinaryEngine) Fetch(ctx context.Context, url, destDir, key string) (*Result, error) {
	format := e.Format
	if format == "" {
		format = "best[height<=720]/best"
	}

	dl := ytdlp.New().
		Format(format).
		NoPlaylist().
		Output(filepath.Join(destDir, key+".%(ext)s"))
	if e.CookiesFile != "" {
		dl = dl.Cookies(e.CookiesFile)
	}

	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes > 0 {
			e.Logger.Debug().
				Int64("downloaded", int64(update.DownloadedBytes)).
				Int64("total", int64(update.TotalBytes)).
				Msg("download progress")
		}
	})

	res, err := dl.Run(ctx, url)
	if err != nil {
		if isBinaryMissing(err) {
			return nil, ErrBinaryNotFound
		}
		return nil, fmt.Errorf("yt-dlp error: %w", err)
	}

	path, err := findDownloadedFile(destDir, key)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Path: path,
		Ext:  strings.TrimPrefix(filepath.Ext(path), "."),
	}
	if info, err := os.Stat(path); err == nil {
		result.Size = info.Size()
	}

	if res != nil {
		if infos, err := res.GetExtractedInfo(); err == nil && len(infos) > 0 {
			if infos[0].Title != nil {
				result.Title = *infos[0].Title
			}
			if infos[0].Extension != "" {
				result.Ext = infos[0].Extension
			}
		}
	}
	if result.Title == "" {
		result.Title = "Unknown"
	}
	return result, nil
}

func isBinaryMissing(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	return strings.Contains(err.Error(), "executable file not found")
}
