package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the "path" argument shared by every single-image tool.
var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

// conversionProperties returns the binarization and vectorization arguments.
// They mirror the fields of the HTTP form.
func conversionProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty,
		"threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Gray level separating foreground from background (0-255). Pixels brighter than it are foreground. Default 128",
			"minimum":     0,
			"maximum":     255,
		},
		"invert": map[string]interface{}{
			"type":        "boolean",
			"description": "Treat pixels at or below the threshold as foreground (dark lines on light paper)",
		},
		"single_line": map[string]interface{}{
			"type":        "boolean",
			"description": "Thin the mask before tracing",
		},
		"thinning": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"morph", "skeleton"},
			"description": "Thinning strategy for single_line: morph (dilate then open) or skeleton (1 px wide). Default morph",
		},
		"ignore_border": map[string]interface{}{
			"type":        "boolean",
			"description": "Pad the mask with a 10 px background border so content touching the image edge is traced separately",
		},
	}
}

// edgeProperties returns the edge filter arguments.
func edgeProperties() map[string]interface{} {
	return map[string]interface{}{
		"algorithm": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"Canny", "Sobel", "Prewitt", "Laplacian"},
			"description": "Edge detection algorithm. Default Canny",
		},
		"blur_kernel": map[string]interface{}{
			"type":        "integer",
			"description": "Gaussian pre-blur size, odd 1-31 (1 disables). Default 3",
		},
		"canny_low": map[string]interface{}{
			"type":        "integer",
			"description": "Canny low hysteresis threshold (0-255). Default 100",
		},
		"canny_high": map[string]interface{}{
			"type":        "integer",
			"description": "Canny high hysteresis threshold (0-255). Default 200",
		},
		"ksize": map[string]interface{}{
			"type":        "integer",
			"description": "Sobel and Laplacian aperture (1, 3, 5 or 7). Default 3",
		},
		"invert": map[string]interface{}{
			"type":        "boolean",
			"description": "Draw dark edges on a white background",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	vectorize := conversionProperties()
	vectorize["fill_color"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"none", "black", "white"},
		"description": "Fill every contour with fan-triangulated SOLIDs in this colour. Default none",
	}
	vectorize["precision"] = map[string]interface{}{
		"type":        "string",
		"description": "Contour refinement: none, more_points_<n> (n-1 interpolated points per edge, n in 1..64) or curve_edge (closed cubic spline). Default none",
	}
	vectorize["approximation"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"none", "simple"},
		"description": "none keeps every boundary pixel; simple keeps only direction changes",
	}
	vectorize["drop_frame"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Skip borders whose bounding box spans the whole image. Default true",
	}
	vectorize["output_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Where to write the DXF. Defaults to the image path with a .dxf extension",
	}
	vectorize["render_preview"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Also return a PNG rendering of the traced contours",
	}

	edges := edgeProperties()
	edges["path"] = pathProperty
	edges["output_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Optional file to save the edge image to (format from extension)",
	}

	batch := edgeProperties()
	batch["input_dir"] = map[string]interface{}{
		"type":        "string",
		"description": "Folder containing jpg, png, bmp, tiff or webp images",
	}
	batch["output_dir"] = map[string]interface{}{
		"type":        "string",
		"description": "Folder for the results; created if missing",
	}
	batch["format"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"png", "jpg", "bmp", "tiff"},
		"description": "Output image format. Default png",
	}
	batch["suffix"] = map[string]interface{}{
		"type":        "string",
		"description": "Appended to each output file name before the extension. Default _edges",
	}
	batch["mode"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"edges", "dxf"},
		"description": "edges writes edge maps; dxf vectorizes each image with the server defaults. Default edges",
	}

	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and whether it will be downscaled before tracing. Caches the decoded image for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Vectorization
		{
			Name:        "image_binarize_preview",
			Description: "Return the black and white mask that vectorization would trace, as base64 PNG. Use it to tune threshold and invert before converting.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": conversionProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_vectorize",
			Description: "Trace every contour of the thresholded image and write a DXF (R2000) drawing of closed polylines, optionally filled. Returns the output path and contour statistics.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": vectorize,
				"required":   []string{"path"},
			},
		},

		// Edge detection
		{
			Name:        "image_edge_detect",
			Description: "Return an edge map of the image (Canny, Sobel, Prewitt or Laplacian) as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": edges,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_batch_edges",
			Description: "Process every image in a folder, writing edge maps or DXF drawings to another folder. One bad file does not stop the batch.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": batch,
				"required":   []string{"input_dir", "output_dir"},
			},
		},

		// Inspection
		{
			Name:        "dxf_inspect",
			Description: "Parse a DXF file and summarize its version, layers and entity counts.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the DXF file",
					},
				},
				"required": []string{"path"},
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
