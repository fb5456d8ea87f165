package db

import (
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestRecordAndListDownloads(t *testing.T) {
	store := setupTestStore(t)

	records := []DownloadDict{
		{FileKey: "a.mp4", URL: "https://example.com/1", Title: "First", Ext: "mp4", MediaType: "Video", Size: 100, CreatedAt: "2026-01-01T00:00:00Z"},
		{FileKey: "b.mp3", URL: "https://example.com/2", Title: "Second", Ext: "mp3", MediaType: "Audio", Size: 200, CreatedAt: "2026-01-02T00:00:00Z"},
	}
	for _, r := range records {
		if err := store.RecordDownload(r); err != nil {
			t.Fatalf("RecordDownload(%s): %v", r.FileKey, err)
		}
	}

	list, err := store.ListDownloads(10, 0)
	if err != nil {
		t.Fatalf("ListDownloads: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d downloads, want 2", len(list))
	}
	// Newest first.
	if list[0].FileKey != "b.mp3" {
		t.Errorf("first entry = %s, want b.mp3", list[0].FileKey)
	}
}

func TestRecordDownloadFillsCreatedAt(t *testing.T) {
	store := setupTestStore(t)

	if err := store.RecordDownload(DownloadDict{FileKey: "k.mp4", URL: "u", Title: "t", Ext: "mp4"}); err != nil {
		t.Fatalf("RecordDownload: %v", err)
	}
	got, err := store.GetDownload("k.mp4")
	if err != nil {
		t.Fatalf("GetDownload: %v", err)
	}
	if got == nil || got.CreatedAt == "" {
		t.Errorf("expected created_at to be filled, got %+v", got)
	}
}

func TestGetDownloadMissing(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.GetDownload("nope")
	if err != nil {
		t.Fatalf("GetDownload: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing download, got %+v", got)
	}
}

func TestDeleteDownload(t *testing.T) {
	store := setupTestStore(t)

	if err := store.RecordDownload(DownloadDict{FileKey: "x.mp4", URL: "u", Title: "t", Ext: "mp4"}); err != nil {
		t.Fatalf("RecordDownload: %v", err)
	}
	if err := store.DeleteDownload("x.mp4"); err != nil {
		t.Fatalf("DeleteDownload: %v", err)
	}
	got, err := store.GetDownload("x.mp4")
	if err != nil {
		t.Fatalf("GetDownload: %v", err)
	}
	if got != nil {
		t.Errorf("download still present after delete: %+v", got)
	}

	// Deleting a missing row is not an error.
	if err := store.DeleteDownload("x.mp4"); err != nil {
		t.Errorf("DeleteDownload on missing row: %v", err)
	}
}

func TestServerRegistryLifecycle(t *testing.T) {
	store := setupTestStore(t)

	id, err := store.AddServer("https://example.com/mcp", "bearer", "tok", "123")
	if err != nil {
		t.Fatalf("AddServer: %v", err)
	}

	server, err := store.GetServer(id)
	if err != nil {
		t.Fatalf("GetServer: %v", err)
	}
	if server == nil {
		t.Fatal("GetServer returned nil for existing server")
	}
	if server.AuthMethod != "bearer" || server.Active || !server.Enabled {
		t.Errorf("unexpected server state: %+v", server)
	}

	if err := store.SetServerActive(id, true); err != nil {
		t.Fatalf("SetServerActive: %v", err)
	}
	n, err := store.CountActiveServers()
	if err != nil {
		t.Fatalf("CountActiveServers: %v", err)
	}
	if n != 1 {
		t.Errorf("active count = %d, want 1", n)
	}

	if err := store.SetServerEnabled(id, false); err != nil {
		t.Fatalf("SetServerEnabled: %v", err)
	}
	server, _ = store.GetServer(id)
	if server.Enabled {
		t.Error("server still enabled after disable")
	}
	if !server.Active {
		t.Error("disable must not deactivate the server")
	}

	if err := store.DeactivateAllServers(); err != nil {
		t.Fatalf("DeactivateAllServers: %v", err)
	}
	n, _ = store.CountActiveServers()
	if n != 0 {
		t.Errorf("active count after deactivate = %d, want 0", n)
	}

	if err := store.RemoveServer(id); err != nil {
		t.Fatalf("RemoveServer: %v", err)
	}
	if err := store.RemoveServer(id); err == nil {
		t.Error("expected error removing missing server")
	}
}

func TestSettings(t *testing.T) {
	store := setupTestStore(t)

	v, err := store.GetSetting("missing")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "" {
		t.Errorf("missing setting = %q, want empty", v)
	}

	if err := store.SetSetting("diagnostics_level", "debug"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := store.SetSetting("diagnostics_level", "warn"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	v, _ = store.GetSetting("diagnostics_level")
	if v != "warn" {
		t.Errorf("setting = %q, want warn", v)
	}
}
