// Package mcp exposes the inventory to MCP clients in serve mode, so
// AI tooling can ask about groups and hosts without parsing the raw
// inventory JSON.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/paularlott/mcp"

	"github.com/haught/akips-inventory/internal/inventory"
	"github.com/haught/akips-inventory/internal/log"
)

// Server wraps the MCP server around the inventory holder.
type Server struct {
	mcpServer   *mcp.Server
	holder      *inventory.Holder
	refresh     func() error
	bearerToken string
}

// NewServer creates an MCP server over the current inventory. refresh
// triggers a rebuild from the remote monitoring system.
func NewServer(holder *inventory.Holder, refresh func() error, bearerToken string) *Server {
	s := &Server{
		mcpServer:   mcp.NewServer("akips-inventory", "1.0.0"),
		holder:      holder,
		refresh:     refresh,
		bearerToken: bearerToken,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.RegisterTool(
		mcp.NewTool("inventory_groups", "List the device groups in the current inventory, with member counts.",
			mcp.String("match", "Only list groups whose name contains this substring"),
		),
		s.handleGroups,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("group_hosts", "List the hosts that belong to a device group",
			mcp.String("group", "Group name", mcp.Required()),
		),
		s.handleGroupHosts,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("host_vars", "Get a host's inventory variables as JSON",
			mcp.String("host", "Host name", mcp.Required()),
		),
		s.handleHostVars,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("inventory_refresh", "Rebuild the inventory from the monitoring system now"),
		s.handleRefresh,
	)
}

// HandleRequest handles MCP HTTP requests with optional bearer token authentication
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log.Debug("MCP request received", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	if s.bearerToken != "" {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			log.Warn("MCP request missing Authorization header", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			log.Warn("MCP request invalid Authorization format", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid Authorization format", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if token != s.bearerToken {
			log.Warn("MCP request invalid token", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
	}

	s.mcpServer.HandleRequest(w, r)
}

func (s *Server) handleGroups(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	match := req.StringOr("match", "")

	inv, refreshed := s.holder.Current()
	groups := inv.Groups()

	var result strings.Builder
	count := 0
	for _, g := range groups {
		if match != "" && !strings.Contains(strings.ToLower(g), strings.ToLower(match)) {
			continue
		}
		result.WriteString(fmt.Sprintf("- %s (%d hosts)\n", g, len(inv.GroupHosts(g))))
		count++
	}

	if count == 0 {
		if match != "" {
			return mcp.NewToolResponseText(fmt.Sprintf("No groups matching: %s", match)), nil
		}
		return mcp.NewToolResponseText("No groups in inventory"), nil
	}

	header := fmt.Sprintf("%d groups (inventory refreshed %s):\n\n", count, refreshed.Format("2006-01-02 15:04:05"))
	return mcp.NewToolResponseText(header + result.String()), nil
}

func (s *Server) handleGroupHosts(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	group, err := req.String("group")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("group is required: " + err.Error())
	}

	inv, _ := s.holder.Current()
	hosts := inv.GroupHosts(group)
	if hosts == nil {
		return nil, mcp.NewToolErrorInternal("group not found: " + group)
	}
	if len(hosts) == 0 {
		return mcp.NewToolResponseText(fmt.Sprintf("Group %s has no hosts", group)), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Hosts in %s:\n\n", group))
	for _, h := range hosts {
		if vars, ok := inv.HostVars(h); ok {
			if ip, ok := vars["ansible_host"].(string); ok {
				result.WriteString(fmt.Sprintf("- %s (%s)\n", h, ip))
				continue
			}
		}
		result.WriteString(fmt.Sprintf("- %s\n", h))
	}
	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) handleHostVars(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	host, err := req.String("host")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("host is required: " + err.Error())
	}

	inv, _ := s.holder.Current()
	vars, ok := inv.HostVars(host)
	if !ok {
		return nil, mcp.NewToolErrorInternal("host not found: " + host)
	}

	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return nil, mcp.NewToolErrorInternal("failed to encode variables: " + err.Error())
	}
	return mcp.NewToolResponseText(string(data)), nil
}

func (s *Server) handleRefresh(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	if err := s.refresh(); err != nil {
		log.Error("MCP-triggered refresh failed", "error", err)
		return nil, mcp.NewToolErrorInternal("refresh failed: " + err.Error())
	}

	inv, refreshed := s.holder.Current()
	return mcp.NewToolResponseText(fmt.Sprintf(
		"Inventory refreshed at %s: %d groups, %d hosts",
		refreshed.Format("2006-01-02 15:04:05"), len(inv.Groups()), len(inv.Hosts()))), nil
}

// GetHTTPHandler returns the HTTP handler for the MCP server
func (s *Server) GetHTTPHandler() http.HandlerFunc {
	return s.HandleRequest
}

// LogStartup logs MCP server startup information
func (s *Server) LogStartup() {
	log.Info("MCP Server initialized", "version", "1.0.0")
	if s.bearerToken != "" {
		log.Info("MCP authentication enabled", "type", "Bearer token")
	} else {
		log.Info("MCP authentication disabled")
	}
	tools := s.mcpServer.ListTools()
	log.Info("MCP tools registered", "count", len(tools))
	for _, tool := range tools {
		log.Debug("MCP tool registered", "name", tool.Name, "description", tool.Description)
	}
}
