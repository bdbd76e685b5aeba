// Package server implements the MCP (Model Context Protocol) server for the
// vectorization tools.
//
// The server speaks JSON-RPC 2.0 over stdio, one message per line:
//   - Input: JSON-RPC requests on stdin
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
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Vectorization:
//   - image_binarize_preview: The mask that would be traced
//   - image_vectorize: Trace contours and write a DXF drawing
//
// Edge Detection:
//   - image_edge_detect: Canny, Sobel, Prewitt or Laplacian edge map
//   - image_batch_edges: Edge maps or drawings for a whole folder
//
// Inspection:
//   - dxf_inspect: Layers and entity counts of a DXF file
//
// Conversion arguments override the defaults the server was built with
// (WithPipeline), using the same parsing rules as the HTTP form fields.
//
// # Image Caching
//
// Images are decoded once per path and reused across tool calls for the
// lifetime of the process.
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
//	srv := server.New(server.WithPipeline(cfg))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
