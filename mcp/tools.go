package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/grabcast/grabcast/db"
	"github.com/grabcast/grabcast/downloader"
	"github.com/grabcast/grabcast/storage"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// richToolDescription mirrors the structured description format the chat
// client renders for tools.
type richToolDescription struct {
	Description string `json:"description"`
	UseWhen     string `json:"use_when"`
	SideEffects string `json:"side_effects,omitempty"`
}

func (d richToolDescription) JSON() string {
	b, _ := json.Marshal(d)
	return string(b)
}

var downloadToolDescription = richToolDescription{
	Description: "🎬 Download any videos and audio. \n 🌐 Supports popular platforms like YouTube, Instagram, Twitter, Vimeo, JioSavan, SoundCloud and many more. \n 🔗 Downloads are provided as convenient direct links. \n ⌨️ Simply paste the URL of any video you want to download.",
	UseWhen:     "💾 The user wants to download or save media content from a website URL. 🎥 Perfect for saving videos, 🎵 music, or 🎧 audio tracks for 📱 offline access.",
	SideEffects: "The tool will download the media file to the server and provide a download link in a beautifully formatted message",
}

// registerTools registers all media downloader MCP tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "validate",
		Description: "Validate the connection and return the owner phone number.",
	}, s.handleValidate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "video_downloader",
		Description: downloadToolDescription.JSON(),
	}, s.handleDownload)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_downloads",
		Description: "List previously downloaded media files and their stored objects.",
	}, s.handleListDownloads)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_download",
		Description: "Delete a stored media file by its file key.",
	}, s.handleDeleteDownload)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "storage_info",
		Description: "Report storage backend connectivity and bucket details.",
	}, s.handleStorageInfo)
}

// --- Input types ---

type validateInput struct{}

type downloadInput struct {
	URL string `json:"url" jsonschema:"The URL of the media to download"`
}

type listDownloadsInput struct {
	Prefix string `json:"prefix,omitempty" jsonschema:"Key prefix to filter stored objects"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of entries (default 20)"`
	Page   int    `json:"page,omitempty" jsonschema:"Page number for history pagination (default 0)"`
}

type deleteDownloadInput struct {
	FileKey string `json:"file_key" jsonschema:"Key of the stored file to delete"`
}

type storageInfoInput struct{}

// --- Results ---

type downloadResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DownloadURL string `json:"download_url,omitempty"`
	Type        string `json:"type,omitempty"`
	FileKey     string `json:"file_key,omitempty"`
	Title       string `json:"title,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

type listDownloadsResult struct {
	History []db.DownloadDict `json:"history"`
	Objects []storage.Object  `json:"objects"`
}

type deleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// --- Handlers ---

func (s *Server) handleValidate(ctx context.Context, req *mcp.CallToolRequest, input validateInput) (*mcp.CallToolResult, string, error) {
	return nil, s.ownerPhone, nil
}

func (s *Server) handleDownload(ctx context.Context, req *mcp.CallToolRequest, input downloadInput) (*mcp.CallToolResult, downloadResult, error) {
	if input.URL == "" {
		return nil, downloadResult{Success: false, Message: "❌ A media URL must be provided."}, nil
	}

	s.log.Info().Str("url", input.URL).Msg("starting download from URL")

	result, err := s.dl.Download(ctx, input.URL)
	if err != nil {
		if errors.Is(err, downloader.ErrPlaylist) {
			return nil, downloadResult{Success: false, Message: "❌ Playlists are not supported. Please provide a single media URL."}, nil
		}
		if errors.Is(err, downloader.ErrNoMedia) {
			return nil, downloadResult{Success: false, Message: "❌ No media found at the provided URL."}, nil
		}
		s.log.Error().Err(err).Str("url", input.URL).Msg("download failed")
		return nil, downloadResult{Success: false, Message: fmt.Sprintf("❌ Error during download: %v", err)}, nil
	}
	defer result.Cleanup()

	filename := storage.SafeFilename(result.Title, result.Ext)
	contentType := result.ContentType()

	s.log.Info().Str("filename", filename).Int64("size", result.Size).Msg("uploading to storage")

	key, err := s.backend.Put(ctx, result.Path, filename, contentType)
	if err != nil {
		s.log.Error().Err(err).Msg("upload failed")
		return nil, downloadResult{Success: false, Message: fmt.Sprintf("❌ Failed to store the media file: %v", err)}, nil
	}

	downloadURL, err := s.backend.URL(ctx, key, s.linkTTL)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to generate download URL")
		return nil, downloadResult{Success: false, Message: fmt.Sprintf("❌ Failed to generate a download link: %v", err)}, nil
	}

	record := db.DownloadDict{
		FileKey:     key,
		URL:         input.URL,
		Title:       result.Title,
		Ext:         result.Ext,
		MediaType:   result.MediaType(),
		Size:        result.Size,
		DownloadURL: downloadURL,
	}
	if err := s.store.RecordDownload(record); err != nil {
		// History is best effort; the user already has their link.
		s.log.Warn().Err(err).Str("key", key).Msg("failed to record download history")
	}

	s.log.Info().Str("title", result.Title).Str("key", key).Msg("download stored")

	return nil, downloadResult{
		Success:     true,
		Message:     formatDownloadMessage(result, downloadURL, s.linkTTL),
		DownloadURL: downloadURL,
		Type:        result.MediaType(),
		FileKey:     key,
		Title:       result.Title,
		Size:        result.Size,
	}, nil
}

func (s *Server) handleListDownloads(ctx context.Context, req *mcp.CallToolRequest, input listDownloadsInput) (*mcp.CallToolResult, listDownloadsResult, error) {
	history, err := s.store.ListDownloads(input.Limit, input.Page)
	if err != nil {
		return nil, listDownloadsResult{}, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	objects, err := s.backend.List(ctx, input.Prefix, limit)
	if err != nil {
		return nil, listDownloadsResult{}, err
	}

	return nil, listDownloadsResult{History: history, Objects: objects}, nil
}

func (s *Server) handleDeleteDownload(ctx context.Context, req *mcp.CallToolRequest, input deleteDownloadInput) (*mcp.CallToolResult, deleteResult, error) {
	if input.FileKey == "" {
		return nil, deleteResult{Success: false, Message: "A file key must be provided"}, nil
	}

	if err := s.backend.Delete(ctx, input.FileKey); err != nil {
		return nil, deleteResult{Success: false, Message: err.Error()}, nil
	}
	if err := s.store.DeleteDownload(input.FileKey); err != nil {
		s.log.Warn().Err(err).Str("key", input.FileKey).Msg("failed to delete history row")
	}
	return nil, deleteResult{Success: true, Message: fmt.Sprintf("Deleted %s", input.FileKey)}, nil
}

func (s *Server) handleStorageInfo(ctx context.Context, req *mcp.CallToolRequest, input storageInfoInput) (*mcp.CallToolResult, storage.Info, error) {
	return nil, s.backend.Info(ctx), nil
}

// formatDownloadMessage builds the markdown confirmation shown to the user.
func formatDownloadMessage(result *downloader.Result, downloadURL string, ttl time.Duration) string {
	return fmt.Sprintf(
		"✅ **Download Complete!**\n"+
			"🎬 **Type**: %s (%s)\n"+
			"📁 **Title**: %s\n"+
			"📊 **Size**: %d bytes\n"+
			"🔗 **Download**: [Click here to download](%s)\n"+
			"⏰ **Link expires in**: %.0f hours\n",
		result.MediaType(), result.Ext, result.Title, result.Size, downloadURL, ttl.Hours(),
	)
}
