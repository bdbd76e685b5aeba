// Package dxf builds and reads AutoCAD DXF drawings in the R2000 (AC1015) ASCII
// format.
//
// A Document collects layers and entities in memory and is serialized once with
// WriteTo or Bytes. Parse reads a drawing back into a Drawing for inspection and
// round-trip checks.
//
// Only the entities a contour drawing needs are supported: LWPOLYLINE for outlines
// and SOLID for fill triangles.
package dxf

import (
	"errors"
	"fmt"
	"strings"
)

// Version is the $ACADVER value written to every document.
const Version = "AC1015"

// DefaultLayer always exists in a new document.
const DefaultLayer = "0"

// ACI values with special meaning.
const (
	ColorByBlock = 0
	ColorWhite   = 7
	ColorByLayer = 256
)

var (
	// ErrUnknownLayer is returned when an entity names a layer that was never added.
	ErrUnknownLayer = errors.New("unknown layer")

	// ErrInvalidLayerName is returned for empty layer names or names containing
	// characters DXF reserves.
	ErrInvalidLayerName = errors.New("invalid layer name")

	// ErrInvalidColor is returned for colour indices outside the ACI range.
	ErrInvalidColor = errors.New("invalid color index")

	// ErrTooFewVertices is returned for polylines with fewer than two vertices.
	ErrTooFewVertices = errors.New("polyline needs at least 2 vertices")
)

// Point is a 2D drawing coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layer is a LAYER table entry.
type Layer struct {
	Name  string `json:"name"`
	Color int    `json:"color"`
}

// Entity is a drawing entity. The set of implementations is closed.
type Entity interface {
	// Type returns the DXF entity name, such as "LWPOLYLINE".
	Type() string
	// LayerName returns the layer the entity is drawn on.
	LayerName() string

	write(g *groupWriter, handle string, owner string)
}

// Polyline is a LWPOLYLINE.
type Polyline struct {
	Layer    string  `json:"layer"`
	Vertices []Point `json:"vertices"`
	Closed   bool    `json:"closed"`
}

// Type implements Entity.
func (p *Polyline) Type() string { return "LWPOLYLINE" }

// LayerName implements Entity.
func (p *Polyline) LayerName() string { return p.Layer }

// Solid is a SOLID: a filled quadrilateral. A triangle repeats its third corner as
// the fourth.
type Solid struct {
	Layer   string   `json:"layer"`
	Color   int      `json:"color"`
	Corners [4]Point `json:"corners"`
}

// Type implements Entity.
func (s *Solid) Type() string { return "SOLID" }

// LayerName implements Entity.
func (s *Solid) LayerName() string { return s.Layer }

// Document is a drawing under construction. It is not safe for concurrent use.
type Document struct {
	layers   []Layer
	entities []Entity
	units    int
}

// New returns an empty document containing only layer "0".
func New() *Document {
	return &Document{
		layers: []Layer{{Name: DefaultLayer, Color: ColorWhite}},
	}
}

// MaxUnits is the largest $INSUNITS code.
const MaxUnits = 24

// SetUnits sets $INSUNITS. 0 (the default) means unitless, 4 millimeters.
func (d *Document) SetUnits(units int) { d.units = units }

// AddLayer adds a layer or updates the colour of an existing one.
// Layer colours must be in 1..255.
func (d *Document) AddLayer(name string, color int) error {
	if err := validateLayerName(name); err != nil {
		return err
	}
	if color < 1 || color > 255 {
		return fmt.Errorf("%w: layer %q color %d (want 1..255)", ErrInvalidColor, name, color)
	}
	for i := range d.layers {
		if strings.EqualFold(d.layers[i].Name, name) {
			d.layers[i].Color = color
			return nil
		}
	}
	d.layers = append(d.layers, Layer{Name: name, Color: color})
	return nil
}

// AddPolyline appends a LWPOLYLINE with a copy of vertices.
func (d *Document) AddPolyline(layer string, vertices []Point, closed bool) error {
	if !d.hasLayer(layer) {
		return fmt.Errorf("%w: %q", ErrUnknownLayer, layer)
	}
	if len(vertices) < 2 {
		return ErrTooFewVertices
	}
	v := make([]Point, len(vertices))
	copy(v, vertices)
	d.entities = append(d.entities, &Polyline{Layer: layer, Vertices: v, Closed: closed})
	return nil
}

// AddSolid appends a SOLID. Colour may be any ACI value including ByBlock (0)
// and ByLayer (256).
func (d *Document) AddSolid(layer string, color int, a, b, c, e Point) error {
	if !d.hasLayer(layer) {
		return fmt.Errorf("%w: %q", ErrUnknownLayer, layer)
	}
	if color < ColorByBlock || color > ColorByLayer {
		return fmt.Errorf("%w: %d (want 0..256)", ErrInvalidColor, color)
	}
	d.entities = append(d.entities, &Solid{Layer: layer, Color: color, Corners: [4]Point{a, b, c, e}})
	return nil
}

// AddTriangle appends a SOLID with the third corner repeated as the fourth.
func (d *Document) AddTriangle(layer string, color int, a, b, c Point) error {
	return d.AddSolid(layer, color, a, b, c, c)
}

// Layers returns a copy of the layer table.
func (d *Document) Layers() []Layer {
	out := make([]Layer, len(d.layers))
	copy(out, d.layers)
	return out
}

// Entities returns the entities in insertion order.
func (d *Document) Entities() []Entity {
	out := make([]Entity, len(d.entities))
	copy(out, d.entities)
	return out
}

// Count returns the number of entities of the given DXF type.
func (d *Document) Count(entityType string) int {
	return countType(d.entities, entityType)
}

func (d *Document) hasLayer(name string) bool {
	for _, l := range d.layers {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

func validateLayerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidLayerName)
	}
	if strings.ContainsAny(name, "<>/\\\":;?*|=`\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidLayerName, name)
	}
	return nil
}

func countType(entities []Entity, entityType string) int {
	n := 0
	for _, e := range entities {
		if e.Type() == entityType {
			n++
		}
	}
	return n
}
