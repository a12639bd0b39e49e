// Package mcp exposes document search and the document list as MCP
// tools so other assistants can use the knowledge base directly.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finsync-labs/finsync-server/internal/core/ports/driving"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Ports holds the core services the MCP server exposes.
type Ports struct {
	Retrieval driving.RetrievalService
	Documents driving.DocumentService
}

// Validate checks that required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return fmt.Errorf("retrieval service is required")
	}
	if p.Documents == nil {
		return fmt.Errorf("document service is required")
	}
	return nil
}

// Server is the MCP server for FinSync.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "finsync",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, nil),
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
