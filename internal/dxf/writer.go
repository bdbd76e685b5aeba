package dxf

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"
)

// groupWriter emits code/value pairs and keeps the first write error.
type groupWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func newGroupWriter(w io.Writer) *groupWriter {
	return &groupWriter{w: bufio.NewWriter(w)}
}

func (g *groupWriter) pair(code int, value string) {
	if g.err != nil {
		return
	}
	c := strconv.Itoa(code)
	if len(c) < 3 {
		c = strings.Repeat(" ", 3-len(c)) + c
	}
	n, err := g.w.WriteString(c + "\n" + value + "\n")
	g.n += int64(n)
	g.err = err
}

func (g *groupWriter) str(code int, s string) { g.pair(code, s) }

func (g *groupWriter) integer(code int, v int) { g.pair(code, strconv.Itoa(v)) }

func (g *groupWriter) float(code int, f float64) {
	if f == 0 {
		f = 0 // normalizes -0
	}
	g.pair(code, strconv.FormatFloat(f, 'f', -1, 64))
}

func (g *groupWriter) point(code int, p Point) {
	g.float(code, p.X)
	g.float(code+10, p.Y)
	g.float(code+20, 0)
}

func (g *groupWriter) flush() error {
	if g.err != nil {
		return g.err
	}
	return g.w.Flush()
}

// handles hands out entity handles in increasing order.
type handles struct{ next uint64 }

func (h *handles) alloc() string {
	h.next++
	return strings.ToUpper(strconv.FormatUint(h.next, 16))
}

func (h *handles) seed() string {
	return strings.ToUpper(strconv.FormatUint(h.next+1, 16))
}

// WriteTo serializes the document. Handles are assigned during the write, so the
// same document always produces the same bytes.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	// The body is written first so $HANDSEED can name the next free handle.
	var body bytes.Buffer
	h := &handles{}
	bg := newGroupWriter(&body)
	modelSpace, paperSpace := d.writeTables(bg, h)
	d.writeBlocks(bg, h, modelSpace, paperSpace)
	d.writeEntities(bg, h, modelSpace)
	d.writeObjects(bg, h)
	bg.str(0, "EOF")
	if err := bg.flush(); err != nil {
		return 0, err
	}

	g := newGroupWriter(w)
	d.writeHeader(g, h.seed())
	g.str(0, "SECTION")
	g.str(2, "CLASSES")
	g.str(0, "ENDSEC")
	if err := g.flush(); err != nil {
		return g.n, err
	}
	n, err := body.WriteTo(w)
	return g.n + n, err
}

// Bytes returns the serialized document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) writeHeader(g *groupWriter, seed string) {
	g.str(0, "SECTION")
	g.str(2, "HEADER")
	g.str(9, "$ACADVER")
	g.str(1, Version)
	g.str(9, "$HANDSEED")
	g.str(5, seed)
	g.str(9, "$INSUNITS")
	g.integer(70, d.units)

	lo, hi := d.extents()
	g.str(9, "$EXTMIN")
	g.point(10, lo)
	g.str(9, "$EXTMAX")
	g.point(10, hi)
	g.str(0, "ENDSEC")
}

// extents returns the bounding box of all entity coordinates, or the unit square
// for an empty drawing.
func (d *Document) extents() (lo, hi Point) {
	lo = Point{X: math.Inf(1), Y: math.Inf(1)}
	hi = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	grow := func(p Point) {
		lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
		hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
	}
	for _, e := range d.entities {
		switch e := e.(type) {
		case *Polyline:
			for _, p := range e.Vertices {
				grow(p)
			}
		case *Solid:
			for _, p := range e.Corners {
				grow(p)
			}
		}
	}
	if math.IsInf(lo.X, 1) {
		return Point{}, Point{X: 1, Y: 1}
	}
	return lo, hi
}

func beginTable(g *groupWriter, h *handles, name string, entries int) string {
	th := h.alloc()
	g.str(0, "TABLE")
	g.str(2, name)
	g.str(5, th)
	g.str(330, "0")
	g.str(100, "AcDbSymbolTable")
	g.integer(70, entries)
	return th
}

func tableRecord(g *groupWriter, h *handles, kind, owner, subclass string) {
	g.str(0, kind)
	g.str(5, h.alloc())
	g.str(330, owner)
	g.str(100, "AcDbSymbolTableRecord")
	g.str(100, subclass)
}

// writeTables writes the TABLES section and returns the handles of the model
// space and paper space block records.
func (d *Document) writeTables(g *groupWriter, h *handles) (modelSpace, paperSpace string) {
	g.str(0, "SECTION")
	g.str(2, "TABLES")

	lo, hi := d.extents()
	t := beginTable(g, h, "VPORT", 1)
	tableRecord(g, h, "VPORT", t, "AcDbViewportTableRecord")
	g.str(2, "*ACTIVE")
	g.integer(70, 0)
	g.float(10, 0)
	g.float(20, 0)
	g.float(11, 1)
	g.float(21, 1)
	g.float(12, (lo.X+hi.X)/2)
	g.float(22, (lo.Y+hi.Y)/2)
	g.float(40, math.Max(hi.Y-lo.Y, 1))
	g.float(41, math.Max(hi.X-lo.X, 1)/math.Max(hi.Y-lo.Y, 1))
	g.str(0, "ENDTAB")

	t = beginTable(g, h, "LTYPE", 3)
	for _, lt := range [][2]string{{"ByBlock", ""}, {"ByLayer", ""}, {"Continuous", "Solid line"}} {
		tableRecord(g, h, "LTYPE", t, "AcDbLinetypeTableRecord")
		g.str(2, lt[0])
		g.integer(70, 0)
		g.str(3, lt[1])
		g.integer(72, 65)
		g.integer(73, 0)
		g.float(40, 0)
	}
	g.str(0, "ENDTAB")

	t = beginTable(g, h, "LAYER", len(d.layers))
	for _, l := range d.layers {
		tableRecord(g, h, "LAYER", t, "AcDbLayerTableRecord")
		g.str(2, l.Name)
		g.integer(70, 0)
		g.integer(62, l.Color)
		g.str(6, "Continuous")
		g.integer(370, -3)
	}
	g.str(0, "ENDTAB")

	t = beginTable(g, h, "STYLE", 1)
	tableRecord(g, h, "STYLE", t, "AcDbTextStyleTableRecord")
	g.str(2, "Standard")
	g.integer(70, 0)
	g.float(40, 0)
	g.float(41, 1)
	g.float(50, 0)
	g.integer(71, 0)
	g.float(42, 2.5)
	g.str(3, "txt")
	g.str(4, "")
	g.str(0, "ENDTAB")

	beginTable(g, h, "VIEW", 0)
	g.str(0, "ENDTAB")

	beginTable(g, h, "UCS", 0)
	g.str(0, "ENDTAB")

	t = beginTable(g, h, "APPID", 1)
	tableRecord(g, h, "APPID", t, "AcDbRegAppTableRecord")
	g.str(2, "ACAD")
	g.integer(70, 0)
	g.str(0, "ENDTAB")

	t = beginTable(g, h, "DIMSTYLE", 1)
	g.str(100, "AcDbDimStyleTable")
	// DIMSTYLE records carry their handle in group 105.
	g.str(0, "DIMSTYLE")
	g.str(105, h.alloc())
	g.str(330, t)
	g.str(100, "AcDbSymbolTableRecord")
	g.str(100, "AcDbDimStyleTableRecord")
	g.str(2, "Standard")
	g.integer(70, 0)
	g.str(0, "ENDTAB")

	t = beginTable(g, h, "BLOCK_RECORD", 2)
	records := [2]string{}
	for i, name := range []string{"*Model_Space", "*Paper_Space"} {
		records[i] = h.alloc()
		g.str(0, "BLOCK_RECORD")
		g.str(5, records[i])
		g.str(330, t)
		g.str(100, "AcDbSymbolTableRecord")
		g.str(100, "AcDbBlockTableRecord")
		g.str(2, name)
	}
	g.str(0, "ENDTAB")

	g.str(0, "ENDSEC")
	return records[0], records[1]
}

// writeBlocks writes the two layout blocks every R2000 drawing needs.
func (d *Document) writeBlocks(g *groupWriter, h *handles, modelSpace, paperSpace string) {
	g.str(0, "SECTION")
	g.str(2, "BLOCKS")
	for _, b := range []struct {
		name, owner string
		paper       bool
	}{
		{"*Model_Space", modelSpace, false},
		{"*Paper_Space", paperSpace, true},
	} {
		g.str(0, "BLOCK")
		g.str(5, h.alloc())
		g.str(330, b.owner)
		g.str(100, "AcDbEntity")
		if b.paper {
			g.integer(67, 1)
		}
		g.str(8, DefaultLayer)
		g.str(100, "AcDbBlockBegin")
		g.str(2, b.name)
		g.integer(70, 0)
		g.point(10, Point{})
		g.str(3, b.name)
		g.str(1, "")

		g.str(0, "ENDBLK")
		g.str(5, h.alloc())
		g.str(330, b.owner)
		g.str(100, "AcDbEntity")
		if b.paper {
			g.integer(67, 1)
		}
		g.str(8, DefaultLayer)
		g.str(100, "AcDbBlockEnd")
	}
	g.str(0, "ENDSEC")
}

func (d *Document) writeEntities(g *groupWriter, h *handles, owner string) {
	g.str(0, "SECTION")
	g.str(2, "ENTITIES")
	for _, e := range d.entities {
		e.write(g, h.alloc(), owner)
	}
	g.str(0, "ENDSEC")
}

func (d *Document) writeObjects(g *groupWriter, h *handles) {
	root := h.alloc()
	group := h.alloc()
	g.str(0, "SECTION")
	g.str(2, "OBJECTS")
	g.str(0, "DICTIONARY")
	g.str(5, root)
	g.str(330, "0")
	g.str(100, "AcDbDictionary")
	g.integer(281, 1)
	g.str(3, "ACAD_GROUP")
	g.str(350, group)
	g.str(0, "DICTIONARY")
	g.str(5, group)
	g.str(330, root)
	g.str(100, "AcDbDictionary")
	g.integer(281, 1)
	g.str(0, "ENDSEC")
}

func entityHead(g *groupWriter, kind, handle, owner, layer string) {
	g.str(0, kind)
	g.str(5, handle)
	g.str(330, owner)
	g.str(100, "AcDbEntity")
	g.str(8, layer)
}

func (p *Polyline) write(g *groupWriter, handle, owner string) {
	entityHead(g, "LWPOLYLINE", handle, owner, p.Layer)
	g.str(100, "AcDbPolyline")
	g.integer(90, len(p.Vertices))
	flags := 0
	if p.Closed {
		flags = 1
	}
	g.integer(70, flags)
	g.float(43, 0)
	for _, v := range p.Vertices {
		g.float(10, v.X)
		g.float(20, v.Y)
	}
}

func (s *Solid) write(g *groupWriter, handle, owner string) {
	entityHead(g, "SOLID", handle, owner, s.Layer)
	g.integer(62, s.Color)
	g.str(100, "AcDbTrace")
	for i, c := range s.Corners {
		g.point(10+i, c)
	}
}
