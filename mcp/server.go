// Package mcp exposes the media downloader over the Model Context Protocol,
// on stdio or streamable HTTP.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/grabcast/grabcast/db"
	"github.com/grabcast/grabcast/downloader"
	"github.com/grabcast/grabcast/storage"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `I help you download videos and audio from provided website URLs.

## What I can do:
- Download videos and audio from YouTube, Instagram, Twitter, Vimeo, Spotify, SoundCloud, and many other sites
- Provide secure download links for your media
- Support multiple formats and quality options

## Usage:
Simply provide a URL to any supported media and I'll download it for you.

### IMPORTANT:
When responding to the user, I will provide beautifully formatted markdown with:
- Download confirmation
- Media type and title
- Direct download link
- File reference for future access`

// MediaDownloader fetches a single media item. Implemented by
// downloader.Service.
type MediaDownloader interface {
	Download(ctx context.Context, url string) (*downloader.Result, error)
}

// Server wraps the MCP server with the downloader, storage backend and store.
type Server struct {
	mcpServer  *mcp.Server
	dl         MediaDownloader
	backend    storage.Backend
	store      *db.Store
	ownerPhone string
	authToken  string
	linkTTL    time.Duration
	log        zerolog.Logger
}

// Options configures a Server.
type Options struct {
	Downloader MediaDownloader
	Backend    storage.Backend
	Store      *db.Store
	OwnerPhone string
	AuthToken  string
	LinkTTL    time.Duration
	Logger     zerolog.Logger
}

// NewServer creates an MCP server with all media downloader tools registered.
func NewServer(opts Options) *Server {
	s := &Server{
		dl:         opts.Downloader,
		backend:    opts.Backend,
		store:      opts.Store,
		ownerPhone: opts.OwnerPhone,
		authToken:  opts.AuthToken,
		linkTTL:    opts.LinkTTL,
		log:        opts.Logger,
	}
	if s.linkTTL <= 0 {
		s.linkTTL = 24 * time.Hour
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "grabcast",
		Version: "1.0.0",
	}, &mcp.ServerOptions{
		Instructions: serverInstructions,
	})

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio (blocking).
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP until ctx is cancelled.
// When the local storage backend is in use its files handler is mounted under
// /files/.
func (s *Server) RunHTTP(ctx context.Context, host string, port int) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", s.requireBearer(handler))
	if local, ok := s.backend.(*storage.LocalBackend); ok {
		mux.Handle("/files/", http.StripPrefix("/files/", local.Handler()))
	}

	srv := &http.Server{
		Addr:    net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", srv.Addr).Msg("serving MCP over streamable HTTP")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requireBearer rejects requests whose bearer token does not match the
// configured one. With no token configured the check is skipped.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || token != s.authToken {
				s.log.Warn().Str("remote", r.RemoteAddr).Msg("rejected request with invalid bearer token")
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
