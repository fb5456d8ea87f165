package downloader

import (
	"errors"
)

var (
	// ErrPlaylist indicates the URL points at a playlist, which is rejected.
	ErrPlaylist = errors.New("playlists are not supported")
	// ErrNoMedia indicates nothing downloadable was found at the URL.
	ErrNoMedia = errors.New("no media found at the provided URL")
	// ErrBinaryNotFound indicates the yt-dlp executable is not installed.
	ErrBinaryNotFound = errors.New("yt-dlp binary not found")
	// ErrUnsupportedURL indicates the engine cannot handle this site.
	ErrUnsupportedURL = errors.New("unsupported URL for this engine")
)
