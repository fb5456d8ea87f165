package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Execute parses and runs a "/mcp ..." command line, returning printable
// output. This is the command surface the chat client exposes.
func (r *Registry) Execute(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "/mcp" {
		return "", fmt.Errorf("not an /mcp command: %q", line)
	}
	if len(fields) < 2 {
		return "", fmt.Errorf("missing /mcp subcommand")
	}

	cmd, args := fields[1], fields[2:]
	switch cmd {
	case "connect":
		return r.runConnect(ctx, args)
	case "use":
		return r.runUse(args)
	case "remove":
		return r.runRemove(args)
	case "list":
		return r.runList(args)
	case "deactivate":
		return r.runDeactivate(args)
	case "diagnostics-level":
		return r.runDiagnosticsLevel(args)
	case "disable":
		return r.runSetEnabled(args, false)
	case "enable":
		return r.runSetEnabled(args, true)
	default:
		return "", fmt.Errorf("unknown /mcp command: %s", cmd)
	}
}

func (r *Registry) runConnect(ctx context.Context, args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", fmt.Errorf("usage: /mcp connect <url> [bearer_token]")
	}
	token := ""
	if len(args) == 2 {
		token = args[1]
	}
	server, err := r.Connect(ctx, args[0], token)
	if err != nil {
		return "", err
	}
	if server.Phone != "" {
		return fmt.Sprintf("Registered server %d (%s, %s auth, phone %s)", server.ID, server.URL, server.AuthMethod, server.Phone), nil
	}
	return fmt.Sprintf("Registered server %d (%s, %s auth)", server.ID, server.URL, server.AuthMethod), nil
}

func (r *Registry) runUse(args []string) (string, error) {
	id, err := parseServerID(args, "use")
	if err != nil {
		return "", err
	}
	if err := r.Use(id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Server %d is now active", id), nil
}

func (r *Registry) runRemove(args []string) (string, error) {
	id, err := parseServerID(args, "remove")
	if err != nil {
		return "", err
	}
	if err := r.Remove(id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed server %d", id), nil
}

func (r *Registry) runList(args []string) (string, error) {
	if len(args) != 0 {
		return "", fmt.Errorf("usage: /mcp list")
	}
	servers, err := r.List()
	if err != nil {
		return "", err
	}
	if len(servers) == 0 {
		return "No servers registered", nil
	}

	var b strings.Builder
	for _, s := range servers {
		state := "inactive"
		if s.Active {
			state = "active"
		}
		if !s.Enabled {
			state += ", disabled"
		}
		fmt.Fprintf(&b, "%d  %s  (%s auth, %s)\n", s.ID, s.URL, s.AuthMethod, state)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Registry) runDeactivate(args []string) (string, error) {
	if len(args) != 0 {
		return "", fmt.Errorf("usage: /mcp deactivate")
	}
	if err := r.DeactivateAll(); err != nil {
		return "", err
	}
	return "All servers deactivated", nil
}

func (r *Registry) runDiagnosticsLevel(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: /mcp diagnostics-level <error|warn|info|debug>")
	}
	if err := r.SetDiagnosticsLevel(args[0]); err != nil {
		return "", err
	}
	return fmt.Sprintf("Diagnostics level set to %s", args[0]), nil
}

func (r *Registry) runSetEnabled(args []string, enabled bool) (string, error) {
	verb := "disable"
	if enabled {
		verb = "enable"
	}
	id, err := parseServerID(args, verb)
	if err != nil {
		return "", err
	}
	if err := r.SetEnabled(id, enabled); err != nil {
		return "", err
	}
	if enabled {
		return fmt.Sprintf("Server %d enabled", id), nil
	}
	return fmt.Sprintf("Server %d disabled", id), nil
}

func parseServerID(args []string, verb string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: /mcp %s <server_id>", verb)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid server id %q", args[0])
	}
	return id, nil
}
