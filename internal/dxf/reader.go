package dxf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed is returned when the input is not a readable ASCII DXF stream.
var ErrMalformed = errors.New("malformed DXF")

// Drawing is a parsed DXF file.
type Drawing struct {
	Version    string   `json:"version"`
	HandleSeed string   `json:"handle_seed"`
	Units      int      `json:"units"`
	Layers     []Layer  `json:"layers"`
	Entities   []Entity `json:"-"`
	// Skipped counts entities of types this package does not model.
	Skipped int `json:"skipped"`
}

// Polylines returns the LWPOLYLINE entities.
func (d *Drawing) Polylines() []*Polyline {
	var out []*Polyline
	for _, e := range d.Entities {
		if p, ok := e.(*Polyline); ok {
			out = append(out, p)
		}
	}
	return out
}

// Solids returns the SOLID entities.
func (d *Drawing) Solids() []*Solid {
	var out []*Solid
	for _, e := range d.Entities {
		if s, ok := e.(*Solid); ok {
			out = append(out, s)
		}
	}
	return out
}

// ClosedPolylines counts closed LWPOLYLINE entities.
func (d *Drawing) ClosedPolylines() int {
	n := 0
	for _, p := range d.Polylines() {
		if p.Closed {
			n++
		}
	}
	return n
}

// Layer returns the named layer.
func (d *Drawing) Layer(name string) (Layer, bool) {
	for _, l := range d.Layers {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Layer{}, false
}

// Summary is a compact description of a drawing.
type Summary struct {
	Version         string         `json:"version"`
	Layers          []Layer        `json:"layers"`
	EntityCounts    map[string]int `json:"entity_counts"`
	ClosedPolylines int            `json:"closed_polylines"`
	Vertices        int            `json:"vertices"`
	Skipped         int            `json:"skipped"`
}

// Summary returns entity counts per type and layer information.
func (d *Drawing) Summary() Summary {
	s := Summary{
		Version:         d.Version,
		Layers:          d.Layers,
		EntityCounts:    map[string]int{},
		ClosedPolylines: d.ClosedPolylines(),
		Skipped:         d.Skipped,
	}
	for _, e := range d.Entities {
		s.EntityCounts[e.Type()]++
		if p, ok := e.(*Polyline); ok {
			s.Vertices += len(p.Vertices)
		}
	}
	return s
}

type group struct {
	code  int
	value string
}

// groupReader reads code/value line pairs with one pair of lookahead.
type groupReader struct {
	s      *bufio.Scanner
	line   int
	peeked *group
}

func (r *groupReader) next() (group, error) {
	if r.peeked != nil {
		g := *r.peeked
		r.peeked = nil
		return g, nil
	}
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return group{}, err
		}
		return group{}, io.EOF
	}
	r.line++
	codeLine := strings.TrimSpace(r.s.Text())
	code, err := strconv.Atoi(codeLine)
	if err != nil {
		return group{}, fmt.Errorf("%w: line %d: bad group code %q", ErrMalformed, r.line, codeLine)
	}
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return group{}, err
		}
		return group{}, fmt.Errorf("%w: line %d: group code %d has no value", ErrMalformed, r.line, code)
	}
	r.line++
	return group{code: code, value: strings.TrimRight(r.s.Text(), "\r")}, nil
}

func (r *groupReader) unread(g group) { r.peeked = &g }

// Parse reads an ASCII DXF stream. Unknown sections and entity types are skipped;
// LAYER table entries, LWPOLYLINE and SOLID entities and the $ACADVER, $HANDSEED
// and $INSUNITS header variables are decoded.
func Parse(rd io.Reader) (*Drawing, error) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	r := &groupReader{s: sc}

	d := &Drawing{}
	section := ""
	sawEOF := false

	for {
		g, err := r.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if g.code != 0 {
			if section == "HEADER" && g.code == 9 {
				if err := parseHeaderVar(r, d, strings.TrimSpace(g.value)); err != nil {
					return nil, err
				}
			}
			continue
		}

		switch v := strings.TrimSpace(g.value); v {
		case "SECTION":
			name, err := r.next()
			if err != nil {
				return nil, fmt.Errorf("%w: section without name", ErrMalformed)
			}
			section = strings.TrimSpace(name.value)
		case "ENDSEC":
			section = ""
		case "EOF":
			sawEOF = true
		case "LAYER":
			if section != "TABLES" {
				continue
			}
			l, err := parseLayer(r)
			if err != nil {
				return nil, err
			}
			d.Layers = append(d.Layers, l)
		case "LWPOLYLINE":
			if section != "ENTITIES" && section != "BLOCKS" {
				continue
			}
			p, err := parsePolyline(r)
			if err != nil {
				return nil, err
			}
			if section == "ENTITIES" {
				d.Entities = append(d.Entities, p)
			}
		case "SOLID":
			if section != "ENTITIES" && section != "BLOCKS" {
				continue
			}
			s, err := parseSolid(r)
			if err != nil {
				return nil, err
			}
			if section == "ENTITIES" {
				d.Entities = append(d.Entities, s)
			}
		default:
			if section == "ENTITIES" {
				d.Skipped++
			}
		}
		if sawEOF {
			break
		}
	}

	if d.Version == "" && len(d.Layers) == 0 && len(d.Entities) == 0 {
		return nil, fmt.Errorf("%w: no DXF content found", ErrMalformed)
	}
	return d, nil
}

func parseHeaderVar(r *groupReader, d *Drawing, name string) error {
	g, err := r.next()
	if err != nil {
		return fmt.Errorf("%w: header variable %s has no value", ErrMalformed, name)
	}
	switch name {
	case "$ACADVER":
		d.Version = strings.TrimSpace(g.value)
	case "$HANDSEED":
		d.HandleSeed = strings.TrimSpace(g.value)
	case "$INSUNITS":
		d.Units, _ = strconv.Atoi(strings.TrimSpace(g.value))
	default:
		r.unread(g)
	}
	return nil
}

// readBody collects the groups of one record up to the next code 0, which is
// pushed back.
func readBody(r *groupReader) ([]group, error) {
	var out []group
	for {
		g, err := r.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if g.code == 0 {
			r.unread(g)
			return out, nil
		}
		out = append(out, g)
	}
}

func parseLayer(r *groupReader) (Layer, error) {
	body, err := readBody(r)
	if err != nil {
		return Layer{}, err
	}
	l := Layer{Color: ColorWhite}
	for _, g := range body {
		switch g.code {
		case 2:
			l.Name = strings.TrimSpace(g.value)
		case 62:
			c, err := strconv.Atoi(strings.TrimSpace(g.value))
			if err != nil {
				return Layer{}, fmt.Errorf("%w: layer color %q", ErrMalformed, g.value)
			}
			l.Color = c
		}
	}
	return l, nil
}

func parsePolyline(r *groupReader) (*Polyline, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	p := &Polyline{Layer: DefaultLayer}
	for _, g := range body {
		switch g.code {
		case 8:
			p.Layer = strings.TrimSpace(g.value)
		case 70:
			flags, err := strconv.Atoi(strings.TrimSpace(g.value))
			if err != nil {
				return nil, fmt.Errorf("%w: polyline flags %q", ErrMalformed, g.value)
			}
			p.Closed = flags&1 == 1
		case 10:
			x, err := parseFloat(g)
			if err != nil {
				return nil, err
			}
			p.Vertices = append(p.Vertices, Point{X: x})
		case 20:
			y, err := parseFloat(g)
			if err != nil {
				return nil, err
			}
			if len(p.Vertices) == 0 {
				return nil, fmt.Errorf("%w: polyline y before x", ErrMalformed)
			}
			p.Vertices[len(p.Vertices)-1].Y = y
		}
	}
	return p, nil
}

func parseSolid(r *groupReader) (*Solid, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	s := &Solid{Layer: DefaultLayer, Color: ColorByLayer}
	for _, g := range body {
		switch {
		case g.code == 8:
			s.Layer = strings.TrimSpace(g.value)
		case g.code == 62:
			c, err := strconv.Atoi(strings.TrimSpace(g.value))
			if err != nil {
				return nil, fmt.Errorf("%w: solid color %q", ErrMalformed, g.value)
			}
			s.Color = c
		case g.code >= 10 && g.code <= 13:
			x, err := parseFloat(g)
			if err != nil {
				return nil, err
			}
			s.Corners[g.code-10].X = x
		case g.code >= 20 && g.code <= 23:
			y, err := parseFloat(g)
			if err != nil {
				return nil, err
			}
			s.Corners[g.code-20].Y = y
		}
	}
	return s, nil
}

func parseFloat(g group) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(g.value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: group %d value %q", ErrMalformed, g.code, g.value)
	}
	return f, nil
}
