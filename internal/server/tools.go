package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// saveProperties are the arguments shared by capture_save and
// capture_save_tmp.
func saveProperties() map[string]interface{} {
	return map[string]interface{}{
		"source": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the captured image (PNG, JPEG, GIF, BMP, TIFF) or a .greenshot container",
		},
		"title": map[string]interface{}{
			"type":        "string",
			"description": "Capture title used in generated file names. Defaults to the source file name",
		},
		"format": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"png", "jpg", "gif", "bmp", "tiff", "greenshot"},
			"description": "Output format. Defaults to the configured format",
		},
		"jpeg_quality": map[string]interface{}{
			"type":        "integer",
			"description": "JPEG quality 0-100. Values outside the range are rejected",
		},
		"effects": map[string]interface{}{
			"type":        "array",
			"description": "Effects applied in order before encoding. See effects_list",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name":   map[string]interface{}{"type": "string"},
					"params": map[string]interface{}{"type": "object"},
					"color":  map[string]interface{}{"type": "string", "description": "Hex color (#RRGGBB or #RRGGBBAA)"},
				},
				"required": []string{"name"},
			},
		},
		"annotations": map[string]interface{}{
			"type":        "array",
			"description": "Annotation elements drawn over the capture (rectangle, ellipse, line, arrow, text, highlight, obfuscate)",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"kind":           map[string]interface{}{"type": "string"},
					"x":              map[string]interface{}{"type": "integer"},
					"y":              map[string]interface{}{"type": "integer"},
					"width":          map[string]interface{}{"type": "integer"},
					"height":         map[string]interface{}{"type": "integer"},
					"line_color":     map[string]interface{}{"type": "string"},
					"fill_color":     map[string]interface{}{"type": "string"},
					"line_thickness": map[string]interface{}{"type": "integer"},
					"text":           map[string]interface{}{"type": "string"},
					"pixel_size":     map[string]interface{}{"type": "integer"},
				},
				"required": []string{"kind"},
			},
		},
		"reduce_colors": map[string]interface{}{
			"type":        "boolean",
			"description": "Always quantize the output to a palette",
		},
		"disable_reduce_colors": map[string]interface{}{
			"type":        "boolean",
			"description": "Never quantize, not even automatically",
		},
		"reduce_colors_to": map[string]interface{}{
			"type":        "integer",
			"description": "Palette size 2-256. Default 256",
		},
		"save_background_only": map[string]interface{}{
			"type":        "boolean",
			"description": "Save the captured bitmap without annotations",
		},
	}
}

func pathOnlySchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"path"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	saveFile := saveProperties()
	saveFile["output_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Destination file. Defaults to the configured directory and file name pattern",
	}
	saveFile["overwrite"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Replace an existing file. Defaults to the configured policy",
	}

	saveTmp := saveProperties()
	saveTmp["named"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Name the file from the capture title and time instead of a random name",
		"default":     true,
	}

	return []Tool{
		// Saving
		{
			Name:        "capture_save",
			Description: "Render a capture with its annotations and effects and write it to a file. Returns the written path and size.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": saveFile,
				"required":   []string{"source"},
			},
		},
		{
			Name:        "capture_save_tmp",
			Description: "Write a capture to the temp directory. The file is tracked and deleted when it expires or on tmpfiles_cleanup.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": saveTmp,
				"required":   []string{"source"},
			},
		},

		// Container Operations
		{
			Name:        "capture_load",
			Description: "Load a .greenshot container and return its image size and annotation elements.",
			InputSchema: pathOnlySchema("Absolute path to the container file"),
		},
		{
			Name:        "capture_footer",
			Description: "Read the footer of a .greenshot container: format version, image length and annotation block length.",
			InputSchema: pathOnlySchema("Absolute path to the container file"),
		},

		// Image Inspection
		{
			Name:        "image_count_colors",
			Description: "Count the distinct colors of an image and report its pixel format. Images with fewer than 256 colors are reduced automatically when enabled.",
			InputSchema: pathOnlySchema("Absolute path to the image file"),
		},

		// Temp Files
		{
			Name:        "tmpfiles_list",
			Description: "List the temp files created by this server that have not expired.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "tmpfiles_delete",
			Description: "Delete a temp file created by capture_save_tmp and stop tracking it. Other paths are refused.",
			InputSchema: pathOnlySchema("Path returned by capture_save_tmp"),
		},
		{
			Name:        "tmpfiles_cleanup",
			Description: "Delete every tracked temp file.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Effects
		{
			Name:        "effects_list",
			Description: "List the effects accepted by the effects argument and their parameters.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
