package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/grabcast/grabcast/db"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type validateArgs struct{}

// newPhoneServer serves a minimal MCP endpoint whose validate tool returns
// phone, guarded by the given bearer token. hits counts authorized requests.
func newPhoneServer(t *testing.T, token, phone string, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{Name: "phone-server", Version: "1.0.0"}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate",
		Description: "Return the owner phone number.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args validateArgs) (*mcp.CallToolResult, string, error) {
		return nil, phone, nil
	})

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || got != token {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		hits.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newLiveRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := db.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(store.Close)
	return New(store, zerolog.Nop())
}

func TestConnectPerformsHandshake(t *testing.T) {
	var hits atomic.Int64
	srv := newPhoneServer(t, "secret-token", "916386617608", &hits)
	reg := newLiveRegistry(t)

	server, err := reg.Connect(context.Background(), srv.URL, "secret-token")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if hits.Load() == 0 {
		t.Error("connect never reached the server")
	}
	if server.Phone != "916386617608" {
		t.Errorf("stored phone = %q, want the validated number", server.Phone)
	}
	if server.AuthMethod != AuthBearer {
		t.Errorf("auth method = %q, want bearer", server.AuthMethod)
	}
}

func TestConnectRejectsInvalidToken(t *testing.T) {
	var hits atomic.Int64
	srv := newPhoneServer(t, "secret-token", "916386617608", &hits)
	reg := newLiveRegistry(t)

	_, err := reg.Connect(context.Background(), srv.URL, "wrong-token")
	if err == nil {
		t.Fatal("expected error connecting with an invalid token")
	}
	if hits.Load() != 0 {
		t.Errorf("%d requests passed the token check, want 0", hits.Load())
	}

	servers, _ := reg.List()
	if len(servers) != 0 {
		t.Errorf("rejected server was registered anyway: %+v", servers)
	}
}

func TestConnectUnreachableServer(t *testing.T) {
	reg := newLiveRegistry(t)

	_, err := reg.Connect(context.Background(), "http://127.0.0.1:1/mcp", "tok")
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestPhoneFromResult(t *testing.T) {
	if got := phoneFromResult(&mcp.CallToolResult{StructuredContent: "123"}); got != "123" {
		t.Errorf("structured content: got %q", got)
	}
	res := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: `"456"`}},
	}
	if got := phoneFromResult(res); got != "456" {
		t.Errorf("json text content: got %q", got)
	}
	res = &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "789"}},
	}
	if got := phoneFromResult(res); got != "789" {
		t.Errorf("plain text content: got %q", got)
	}
}
