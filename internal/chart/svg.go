package chart

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"

	"github.com/zuhrulumam/mortchart/internal/tooltip"
)

const svgNS = "http://www.w3.org/2000/svg"

// Node is an element of the SVG tree
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []*Node    `xml:",any"`
	Text     string     `xml:",chardata"`
}

func el(name string, attrs ...string) *Node {
	n := &Node{XMLName: xml.Name{Local: name}}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	return n
}

func (n *Node) add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

func (n *Node) text(s string) *Node {
	n.Text = s
	return n
}

// Attr returns the value of the named attribute
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Find returns every descendant (n included) whose class is class
func (n *Node) Find(class string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(x *Node) {
		if c, ok := x.Attr("class"); ok && c == class {
			out = append(out, x)
		}
		for _, child := range x.Children {
			walk(child)
		}
	}
	walk(n)
	return out
}

// SVGSurface holds at most one drawn chart as an SVG tree
type SVGSurface struct {
	mu    sync.RWMutex
	width float64
	root  *Node
}

// NewSVGSurface creates an empty surface of the given width
func NewSVGSurface(width float64) *SVGSurface {
	return &SVGSurface{width: width}
}

func (s *SVGSurface) Width() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width
}

// Resize sets the width used by the next render
func (s *SVGSurface) Resize(width float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
}

func (s *SVGSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = nil
}

// Root returns the current <svg> element, nil when nothing is drawn
func (s *SVGSurface) Root() *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Draw replaces the surface contents with frame
func (s *SVGSurface) Draw(frame *Frame, tip *tooltip.Tooltip) error {
	root := buildSVG(frame, tip)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = root
	return nil
}

// WriteTo encodes the current chart. Nothing is written when empty.
func (s *SVGSurface) WriteTo(w io.Writer) (int64, error) {
	root := s.Root()
	if root == nil {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return 0, fmt.Errorf("encode svg: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("encode svg: %w", err)
	}
	buf.WriteByte('\n')

	return buf.WriteTo(w)
}

// Bytes returns the encoded chart
func (s *SVGSurface) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func translate(x, y float64) string {
	return fmt.Sprintf("translate(%s,%s)", num(x), num(y))
}

func buildSVG(f *Frame, tip *tooltip.Tooltip) *Node {
	root := el("svg",
		"xmlns", svgNS,
		"width", num(f.Width),
		"height", num(f.Height),
		"viewBox", fmt.Sprintf("0 0 %s %s", num(f.Width), num(f.Height)),
		"preserveAspectRatio", "xMidYMid meet",
		"font-family", "sans-serif",
		"font-size", "10",
	)

	plot := el("g", "transform", translate(f.Margins.Left, f.Margins.Top))
	root.add(plot)

	plot.add(xAxis(f), yAxis(f))

	for _, b := range f.Bars {
		plot.add(barNode(b, tip))
	}

	return root
}

func xAxis(f *Frame) *Node {
	g := el("g", "class", "x-axis", "transform", translate(0, f.InnerHeight), "fill", "none", "text-anchor", "middle")
	g.add(el("path", "class", "domain", "stroke", "currentColor",
		"d", fmt.Sprintf("M0,6V0H%sV6", num(f.InnerWidth))))

	for _, t := range f.XTicks {
		g.add(el("g", "class", "tick", "transform", translate(t.Pos, 0)).add(
			el("line", "stroke", "currentColor", "y2", "6"),
			el("text", "fill", "currentColor", "y", "9", "dy", "0.71em").text(t.Label),
		))
	}

	g.add(el("text", "class", "axis-label",
		"x", num(f.InnerWidth), "y", "-6", "fill", "#000", "text-anchor", "end").text(f.XLabel))
	return g
}

func yAxis(f *Frame) *Node {
	g := el("g", "class", "y-axis", "fill", "none", "text-anchor", "end")
	g.add(el("path", "class", "domain", "stroke", "currentColor",
		"d", fmt.Sprintf("M-6,0H0V%sH-6", num(f.InnerHeight))))

	for _, t := range f.YTicks {
		g.add(el("g", "class", "tick", "transform", translate(0, t.Pos)).add(
			el("line", "stroke", "currentColor", "x2", "-6"),
			el("text", "fill", "currentColor", "x", "-9", "dy", "0.32em").text(t.Label),
		))
	}

	g.add(el("text", "class", "axis-label",
		"x", num(-f.Margins.Left+10), "y", "-6", "fill", "#000", "text-anchor", "start").text(f.YLabel))
	return g
}

func barNode(b *Bar, tip *tooltip.Tooltip) *Node {
	n := el("rect",
		"class", "bar",
		"x", "0",
		"y", num(b.Y),
		"width", num(math.Max(0, b.Width)),
		"height", num(b.Height),
		"fill", b.Fill,
		"data-cause", b.Record.Cause,
		"data-count", tooltip.FormatCount(b.Record.PatientCount),
	)

	if tip != nil {
		content := tip.Content(b.Record)
		n.Attrs = append(n.Attrs,
			xml.Attr{Name: xml.Name{Local: "data-tooltip"}, Value: content},
			xml.Attr{Name: xml.Name{Local: "onmouseenter"}, Value: "window.mortchart && mortchart.enter(this, event)"},
			xml.Attr{Name: xml.Name{Local: "onmouseleave"}, Value: "window.mortchart && mortchart.leave(this)"},
		)
		n.add(el("title").text(content))
	}
	return n
}
