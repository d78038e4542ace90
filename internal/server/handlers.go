package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ironsheep/capture-output-mcp/internal/capture"
	"github.com/ironsheep/capture-output-mcp/internal/codec"
	"github.com/ironsheep/capture-output-mcp/internal/container"
	"github.com/ironsheep/capture-output-mcp/internal/effects"
	"github.com/ironsheep/capture-output-mcp/internal/imaging"
	"github.com/ironsheep/capture-output-mcp/internal/output"
	"github.com/ironsheep/capture-output-mcp/internal/quantizer"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "capture_save", "effects_list").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Saving
	case "capture_save":
		return s.handleCaptureSave(ctx, args)
	case "capture_save_tmp":
		return s.handleCaptureSaveTmp(ctx, args)

	// Container Operations
	case "capture_load":
		return s.handleCaptureLoad(args)
	case "capture_footer":
		return s.handleCaptureFooter(args)

	// Image Inspection
	case "image_count_colors":
		return s.handleImageCountColors(args)

	// Temp Files
	case "tmpfiles_list":
		return s.handleTmpfilesList()
	case "tmpfiles_delete":
		return s.handleTmpfilesDelete(args)
	case "tmpfiles_cleanup":
		return s.handleTmpfilesCleanup()

	// Effects
	case "effects_list":
		return map[string]interface{}{"effects": effects.Catalog()}, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Saving Handlers ===

type saveArgs struct {
	Source              string            `json:"source"`
	Title               string            `json:"title"`
	Format              string            `json:"format"`
	JPEGQuality         *int              `json:"jpeg_quality"`
	Effects             []effects.Spec    `json:"effects"`
	Annotations         []capture.Element `json:"annotations"`
	ReduceColors        bool              `json:"reduce_colors"`
	DisableReduceColors bool              `json:"disable_reduce_colors"`
	ReduceColorsTo      int               `json:"reduce_colors_to"`
	SaveBackgroundOnly  bool              `json:"save_background_only"`
}

type captureSaveArgs struct {
	saveArgs
	OutputPath string `json:"output_path"`
	Overwrite  *bool  `json:"overwrite"`
}

type captureSaveTmpArgs struct {
	saveArgs
	Named *bool `json:"named"`
}

// SaveResult describes a written file.
type SaveResult struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Size      string `json:"size"`
}

func (s *Server) handleCaptureSave(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a captureSaveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	surface, settings, err := s.prepare(a.saveArgs)
	if err != nil {
		return nil, err
	}

	path := a.OutputPath
	if path == "" {
		name := output.FormatFilename(s.pattern, surface.CaptureDetails(), time.Now())
		path = filepath.Join(s.outputDir, name+settings.Format.Extension())
	}
	overwrite := s.allowOverwrite
	if a.Overwrite != nil {
		overwrite = *a.Overwrite
	}

	written, err := s.saver.SaveToFile(ctx, surface, path, settings, overwrite)
	if err != nil {
		return nil, err
	}
	return s.saveResult(written, settings.Format)
}

func (s *Server) handleCaptureSaveTmp(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a captureSaveTmpArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	surface, settings, err := s.prepare(a.saveArgs)
	if err != nil {
		return nil, err
	}

	var path string
	if a.Named == nil || *a.Named {
		path, err = s.saver.SaveNamedTmpFile(ctx, surface, settings)
		if err != nil {
			return nil, err
		}
	} else if path = s.saver.SaveToTmpFile(ctx, surface, settings); path == "" {
		return nil, fmt.Errorf("failed to save temp file")
	}
	return s.saveResult(path, settings.Format)
}

// prepare loads the source capture, adds the requested annotations and
// builds the settings for one save.
func (s *Server) prepare(a saveArgs) (*capture.Surface, output.Settings, error) {
	settings, err := s.settingsFor(a)
	if err != nil {
		return nil, output.Settings{}, err
	}
	surface, err := s.saver.Open(a.Source, a.Title, s.cache)
	if err != nil {
		return nil, output.Settings{}, err
	}
	if err := surface.Annotations().Add(a.Annotations...); err != nil {
		return nil, output.Settings{}, err
	}
	return surface, settings, nil
}

func (s *Server) settingsFor(a saveArgs) (output.Settings, error) {
	settings := s.defaults
	if a.Format != "" {
		f, err := codec.ParseFormat(a.Format)
		if err != nil {
			return settings, err
		}
		settings.Format = f
	}
	if a.JPEGQuality != nil {
		settings.JPEGQuality = *a.JPEGQuality
	}
	if len(a.Effects) > 0 {
		list, err := effects.FromSpecs(a.Effects)
		if err != nil {
			return settings, err
		}
		settings.Effects = list
	}
	if a.ReduceColorsTo != 0 {
		settings.ReduceColorsTo = a.ReduceColorsTo
	}
	settings.ReduceColors = settings.ReduceColors || a.ReduceColors
	settings.DisableReduceColors = settings.DisableReduceColors || a.DisableReduceColors
	settings.SaveBackgroundOnly = a.SaveBackgroundOnly
	return settings, settings.Validate()
}

func (s *Server) saveResult(path string, format codec.Format) (*SaveResult, error) {
	// The file may have been loaded as a source before.
	s.cache.Evict(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat saved file: %w", err)
	}
	return &SaveResult{
		Path:      path,
		Format:    format.String(),
		SizeBytes: info.Size(),
		Size:      humanize.Bytes(uint64(info.Size())),
	}, nil
}

// === Container Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

func (a pathArgs) validate() error {
	if a.Path == "" {
		return fmt.Errorf("%w: path is required", output.ErrInvalidArgument)
	}
	return nil
}

// LoadResult describes a loaded container.
type LoadResult struct {
	Path     string            `json:"path"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Footer   container.Footer  `json:"footer"`
	Elements []capture.Element `json:"elements"`
}

func (s *Server) handleCaptureLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	footer, err := container.ReadFileFooter(a.Path)
	if err != nil {
		return nil, err
	}
	surface := capture.NewSurface(nil, capture.Details{})
	if err := s.saver.Load(a.Path, surface); err != nil {
		return nil, err
	}

	b := surface.RawBitmap().Bounds()
	items := surface.Annotations().Items
	if items == nil {
		items = []capture.Element{}
	}
	return &LoadResult{
		Path:     a.Path,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Footer:   footer,
		Elements: items,
	}, nil
}

func (s *Server) handleCaptureFooter(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return container.ReadFileFooter(a.Path)
}

// === Image Inspection Handlers ===

// ColorCountResult reports the colors of an image.
type ColorCountResult struct {
	*imaging.ImageInfo
	Colors          int  `json:"colors"`
	HasTransparency bool `json:"has_transparency"`
	// AutoReducible is true when automatic color reduction would quantize
	// the image.
	AutoReducible bool `json:"auto_reducible"`
}

func (s *Server) handleImageCountColors(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	info, err := imaging.LoadImageInfo(a.Path)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	colors := quantizer.CountColors(img)
	transparent := imaging.HasTransparency(img)
	return &ColorCountResult{
		ImageInfo:       info,
		Colors:          colors,
		HasTransparency: transparent,
		AutoReducible:   !transparent && colors < quantizer.MaxPaletteSize,
	}, nil
}

// === Temp File Handlers ===

func (s *Server) handleTmpfilesList() (interface{}, error) {
	tmp := s.saver.TmpFiles()
	tmp.Sweep()
	return map[string]interface{}{
		"paths": tmp.Paths(),
		"count": tmp.Len(),
		"ttl":   tmp.TTL().String(),
	}, nil
}

func (s *Server) handleTmpfilesDelete(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	// Only files this session created may be deleted.
	if !s.saver.TmpFiles().Contains(a.Path) {
		return nil, fmt.Errorf("%w: %s is not a tracked temp file", output.ErrInvalidArgument, a.Path)
	}
	s.cache.Evict(a.Path)
	return map[string]interface{}{
		"path":    a.Path,
		"deleted": s.saver.DeleteNamedTmpFile(a.Path),
	}, nil
}

func (s *Server) handleTmpfilesCleanup() (interface{}, error) {
	s.cache.Clear()
	return map[string]interface{}{
		"removed": s.saver.TmpFiles().Cleanup(),
	}, nil
}
