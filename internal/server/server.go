package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ironsheep/capture-output-mcp/internal/imaging"
	"github.com/ironsheep/capture-output-mcp/internal/output"
)

// Options configure a Server. Zero values get working defaults.
type Options struct {
	// Saver writes every capture. Its temp-file cache backs the tmpfiles_*
	// tools.
	Saver *output.Saver
	// Defaults are the settings tool arguments are applied over; nil means
	// output.DefaultSettings.
	Defaults *output.Settings
	// OutputDir receives capture_save files given without output_path.
	OutputDir string
	// FilenamePattern names files in OutputDir; see output.FormatFilename.
	FilenamePattern string
	// AllowOverwrite is the default for the overwrite argument.
	AllowOverwrite bool
	Logger         *slog.Logger
	Version        string
}

// Server handles MCP protocol communication
type Server struct {
	cache          *imaging.ImageCache
	saver          *output.Saver
	defaults       output.Settings
	outputDir      string
	pattern        string
	allowOverwrite bool
	logger         *slog.Logger
	version        string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	saver := opts.Saver
	if saver == nil {
		saver = output.NewSaver(output.Options{Logger: logger})
	}
	defaults := output.DefaultSettings()
	if opts.Defaults != nil {
		defaults = *opts.Defaults
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	pattern := opts.FilenamePattern
	if pattern == "" {
		pattern = output.DefaultFilenamePattern
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		cache:          imaging.NewImageCache(),
		saver:          saver,
		defaults:       defaults,
		outputDir:      outputDir,
		pattern:        pattern,
		allowOverwrite: opts.AllowOverwrite,
		logger:         logger,
		version:        version,
	}
}

// Run serves requests from in and writes responses to out until in is
// exhausted or ctx is cancelled. The MCP host passes stdin and stdout.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// Close deletes the temp files created by this server.
func (s *Server) Close() {
	if n := s.saver.TmpFiles().Cleanup(); n > 0 {
		s.logger.Info("removed temp files", "count", n)
	}
	s.cache.Clear()
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.logger.Debug("request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "capture-output-mcp",
				"version": s.version,
			},
		},
	}
}
