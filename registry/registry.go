// Package registry tracks the MCP servers a chat client is connected to and
// implements the /mcp command surface on top of the store.
package registry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/grabcast/grabcast/db"
)

// MaxActiveServers caps how many servers can be active at once.
const MaxActiveServers = 5

// Auth methods recorded for a registered server.
const (
	AuthBearer = "bearer"
	AuthOAuth  = "oauth"
)

// DiagnosticsLevelKey is the settings key for the persisted log level.
const DiagnosticsLevelKey = "diagnostics_level"

// Registry manages server registrations.
type Registry struct {
	store    *db.Store
	validate func(ctx context.Context, url, token string) (string, error)
	log      zerolog.Logger
}

// New creates a Registry on top of the store.
func New(store *db.Store, log zerolog.Logger) *Registry {
	return &Registry{store: store, validate: validateServer, log: log}
}

// Connect registers a server. A non-empty token selects bearer auth: the
// server is dialed, its validate tool is called with the token, and the phone
// number it returns is stored; a failed handshake fails the registration.
// Without a token the server is recorded for OAuth.
func (r *Registry) Connect(ctx context.Context, url, token string) (*db.ServerDict, error) {
	if url == "" {
		return nil, fmt.Errorf("server URL must be provided")
	}

	method := AuthOAuth
	phone := ""
	if token != "" {
		method = AuthBearer
		p, err := r.validate(ctx, url, token)
		if err != nil {
			return nil, fmt.Errorf("server validation failed: %w", err)
		}
		phone = p
	}

	id, err := r.store.AddServer(url, method, token, phone)
	if err != nil {
		return nil, err
	}
	r.log.Info().Int64("id", id).Str("url", url).Str("auth", method).Str("phone", phone).Msg("registered server")
	return r.store.GetServer(id)
}

// Use activates a registered server, enforcing the active-server cap.
func (r *Registry) Use(id int64) error {
	server, err := r.store.GetServer(id)
	if err != nil {
		return err
	}
	if server == nil {
		return fmt.Errorf("server not found: %d", id)
	}
	if server.Active {
		return nil
	}

	active, err := r.store.CountActiveServers()
	if err != nil {
		return err
	}
	if active >= MaxActiveServers {
		return fmt.Errorf("cannot activate server %d: %d servers already active (max %d)", id, active, MaxActiveServers)
	}
	return r.store.SetServerActive(id, true)
}

// Remove deregisters a server.
func (r *Registry) Remove(id int64) error {
	return r.store.RemoveServer(id)
}

// List returns all registered servers.
func (r *Registry) List() ([]db.ServerDict, error) {
	return r.store.ListServers()
}

// DeactivateAll disconnects every server without removing registrations.
func (r *Registry) DeactivateAll() error {
	return r.store.DeactivateAllServers()
}

// SetEnabled toggles tool availability for a server without disconnecting it.
func (r *Registry) SetEnabled(id int64, enabled bool) error {
	return r.store.SetServerEnabled(id, enabled)
}

// SetDiagnosticsLevel validates the level, applies it globally and persists
// it for the next start.
func (r *Registry) SetDiagnosticsLevel(level string) error {
	switch level {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid diagnostics level %q (want error, warn, info or debug)", level)
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(parsed)
	return r.store.SetSetting(DiagnosticsLevelKey, level)
}
