package downloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

type stubProber struct{ playlist bool }

func (p stubProber) IsPlaylist(ctx context.Context, url string) bool { return p.playlist }

type stubEngine struct {
	name     string
	failures int
	calls    int
	err      error
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Fetch(ctx context.Context, url, destDir, key string) (*Result, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if e.calls <= e.failures {
		return nil, errors.New("transient failure")
	}
	path := filepath.Join(destDir, key+".mp4")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		return nil, err
	}
	return &Result{Title: "Test Clip", Ext: "mp4", Path: path, Size: 4}, nil
}

func newTestService(engine, fallback Engine, prober Prober) *Service {
	return NewWithEngines(engine, fallback, prober, zerolog.Nop())
}

func TestDownloadRejectsPlaylists(t *testing.T) {
	svc := newTestService(&stubEngine{name: "stub"}, nil, stubProber{playlist: true})

	_, err := svc.Download(context.Background(), "https://example.com/playlist")
	if !errors.Is(err, ErrPlaylist) {
		t.Fatalf("got %v, want ErrPlaylist", err)
	}
}

func TestDownloadSuccess(t *testing.T) {
	engine := &stubEngine{name: "stub"}
	svc := newTestService(engine, nil, stubProber{})

	result, err := svc.Download(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer result.Cleanup()

	if result.Title != "Test Clip" || result.Ext != "mp4" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Dir == "" {
		t.Error("result.Dir not set")
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Errorf("downloaded file missing: %v", err)
	}
}

func TestDownloadRetriesOnce(t *testing.T) {
	engine := &stubEngine{name: "stub", failures: 1}
	svc := newTestService(engine, nil, stubProber{})

	result, err := svc.Download(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Download after retry: %v", err)
	}
	defer result.Cleanup()

	if engine.calls != 2 {
		t.Errorf("engine called %d times, want 2", engine.calls)
	}
}

func TestDownloadGivesUpAfterRetry(t *testing.T) {
	engine := &stubEngine{name: "stub", failures: 10}
	svc := newTestService(engine, nil, stubProber{})

	if _, err := svc.Download(context.Background(), "https://example.com/v"); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if engine.calls != 2 {
		t.Errorf("engine called %d times, want 2", engine.calls)
	}
}

func TestDownloadFallsBackWhenBinaryMissing(t *testing.T) {
	primary := &stubEngine{name: "binary", err: ErrBinaryNotFound}
	fallback := &stubEngine{name: "native"}
	svc := newTestService(primary, fallback, stubProber{})

	result, err := svc.Download(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Download via fallback: %v", err)
	}
	defer result.Cleanup()

	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1 (no retry on missing binary)", primary.calls)
	}
	if fallback.calls != 1 {
		t.Errorf("fallback called %d times, want 1", fallback.calls)
	}
}

func TestCleanupRemovesTempDir(t *testing.T) {
	svc := newTestService(&stubEngine{name: "stub"}, nil, stubProber{})

	result, err := svc.Download(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if err := result.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(result.Dir); !os.IsNotExist(err) {
		t.Errorf("temp dir still exists after Cleanup")
	}
}

func TestContentTypeForExt(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"mp4", "video/mp4"},
		{"webm", "video/mp4"},
		{"MP4", "video/mp4"},
		{"", "video/mp4"},
		{"mp3", "audio/mp3"},
		{"m4a", "audio/m4a"},
		{".opus", "audio/opus"},
	}
	for _, tt := range tests {
		if got := ContentTypeForExt(tt.ext); got != tt.want {
			t.Errorf("ContentTypeForExt(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestFindDownloadedFile(t *testing.T) {
	dir := t.TempDir()

	if _, err := findDownloadedFile(dir, "key"); !errors.Is(err, ErrNoMedia) {
		t.Errorf("empty dir: got %v, want ErrNoMedia", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "key.webm"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	path, err := findDownloadedFile(dir, "key")
	if err != nil {
		t.Fatalf("findDownloadedFile: %v", err)
	}
	if filepath.Base(path) != "key.webm" {
		t.Errorf("found %s, want key.webm", path)
	}
}

func TestMediaType(t *testing.T) {
	video := &Result{Ext: "mp4"}
	if got := video.MediaType(); got != "Video" {
		t.Errorf("mp4 MediaType = %q, want Video", got)
	}
	audio := &Result{Ext: "mp3"}
	if got := audio.MediaType(); got != "Audio" {
		t.Errorf("mp3 MediaType = %q, want Audio", got)
	}
}

func TestIsYouTubeURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtu.be/abc", true},
		{"https://music.youtube.com/watch?v=abc", true},
		{"https://m.youtube.com/watch?v=abc", true},
		{"https://vimeo.com/12345", false},
		{"https://example.com/youtube.com", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		if got := isYouTubeURL(tt.url); got != tt.want {
			t.Errorf("isYouTubeURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
