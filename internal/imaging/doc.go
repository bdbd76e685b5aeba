// Package imaging provides the raster side of the converter: decoding, binarization,
// morphology and classical edge detection.
//
// All operations work with standard Go image.Image types and use a coordinate system
// where (0,0) is at the top-left corner, X increases rightward, and Y increases downward.
//
// # Binarization
//
// Binarize produces a Mask, a compact two-valued image that the contour package
// traces. The pipeline is downscale (above MaxWidth), BT.601 grayscale, threshold,
// optional border padding and optional thinning. Every step returns a new value; no
// step edits its input.
//
// # Edge Detection
//
// The four supported filters (Canny, Sobel, Prewitt, Laplacian) implement EdgeFilter
// and are selected through the closed Algorithm enumeration. Parameters travel in an
// EdgeParams value, so two goroutines can run different filters at the same time.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Every other function in the package
// is stateless.
//
// # Error Handling
//
// Functions return errors for undecodable input, unsupported formats and encoding
// failures. Image-processing functions themselves cannot fail.
package imaging
