// Package server implements the MCP (Model Context Protocol) server for the
// capture output pipeline.
//
// This package provides a JSON-RPC 2.0 server that exposes the output
// orchestrator through the MCP protocol, so an MCP client can save captured
// screenshots with annotations and effects, manage temp files and inspect
// container files.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Saving:
//   - capture_save: Render and write a capture to a file
//   - capture_save_tmp: Write a capture to a tracked temp file
//
// Container Operations:
//   - capture_load: Read a .greenshot container with its annotations
//   - capture_footer: Inspect a container footer
//
// Image Inspection:
//   - image_count_colors: Count distinct colors
//
// Temp Files:
//   - tmpfiles_list, tmpfiles_delete, tmpfiles_cleanup
//
// Effects:
//   - effects_list: Describe the effects accepted by the save tools
//
// # Sources
//
// A source is any PNG, JPEG, GIF, BMP or TIFF file, or a container file.
// Plain images are cached by path and shared read-only across calls; a
// file written by a save is evicted from the cache. Containers are always
// read from disk so their annotations are current.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
// The server is started by the serve command of the CLI:
//
//	srv := server.New(server.Options{Saver: saver, Logger: logger})
//	defer srv.Close()
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    return err
//	}
package server
