// Package contour turns binary masks into closed point sequences and prepares them
// for vector output.
//
// Extract follows every outer and hole border of a mask (Suzuki-Abe border
// following). Refine optionally densifies or smooths each border, and Triangulate
// splits a border into fan triangles for solid fills.
//
// Points are in mask pixel space: (0,0) is the top-left sample, X grows rightward
// and Y grows downward.
//
// All functions are pure. Inputs are never modified and results never alias them.
package contour
