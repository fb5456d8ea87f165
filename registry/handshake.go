package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// bearerTransport adds the bearer token to every outgoing request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}

// validateServer dials an MCP server over streamable HTTP with the bearer
// token and calls its validate tool. Returns the owner phone number the
// server reports.
func validateServer(ctx context.Context, url, token string) (string, error) {
	httpClient := &http.Client{
		Transport: &bearerTransport{token: token, base: http.DefaultTransport},
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "grabcast-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint:   url,
		HTTPClient: httpClient,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "validate",
		Arguments: map[string]any{},
	})
	if err != nil {
		return "", fmt.Errorf("validate call to %s failed: %w", url, err)
	}
	if res.IsError {
		return "", fmt.Errorf("server %s rejected validation", url)
	}
	return phoneFromResult(res), nil
}

// phoneFromResult extracts the phone number from a validate result. The tool
// returns a bare string, which arrives as structured content and as a JSON
// text block.
func phoneFromResult(res *mcp.CallToolResult) string {
	if s, ok := res.StructuredContent.(string); ok && s != "" {
		return s
	}
	for _, c := range res.Content {
		tc, ok := c.(*mcp.TextContent)
		if !ok {
			continue
		}
		text := strings.TrimSpace(tc.Text)
		var s string
		if err := json.Unmarshal([]byte(text), &s); err == nil {
			return s
		}
		return text
	}
	return ""
}
