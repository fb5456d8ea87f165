package downloader

import (
	"context"
	"encoding/json"

	"github.com/lrstanley/go-ytdlp"
)

// probeInfo is the subset of yt-dlp's JSON dump needed for playlist detection.
type probeInfo struct {
	Type    string            `json:"_type"`
	Entries []json.RawMessage `json:"entries"`
}

// IsPlaylist runs a flat extraction and reports whether the URL resolves to a
// playlist. Probe failures are treated as "not a playlist" so the download
// itself produces the real error.
func (e *BinaryEngine) IsPlaylist(ctx context.Context, url string) bool {
	dl := ytdlp.New().
		Quiet().
		SkipDownload().
		FlatPlaylist().
		DumpSingleJSON()
	if e.CookiesFile != "" {
		dl = dl.Cookies(e.CookiesFile)
	}

	res, err := dl.Run(ctx, url)
	if err != nil || res == nil {
		e.Logger.Debug().Err(err).Str("url", url).Msg("playlist probe failed")
		return false
	}
	return isPlaylistJSON(res.Stdout)
}

// isPlaylistJSON decides from a yt-dlp info dump whether the target is a
// playlist. Sites mark playlists with _type playlist or multi_video, or by
// returning an entries list.
func isPlaylistJSON(raw string) bool {
	var info probeInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return false
	}
	if info.Type == "playlist" || info.Type == "multi_video" {
		return true
	}
	return len(info.Entries) > 0
}
