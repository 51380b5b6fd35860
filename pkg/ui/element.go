package ui

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Element is one node of an Android uiautomator dump.
// It implements Node through a pointer receiver.
type Element struct {
	XMLName     xml.Name  `xml:"node" json:"-"`
	TextValue   string    `xml:"text,attr" json:"text"`
	ResourceID  string    `xml:"resource-id,attr" json:"resourceId"`
	ClassName   string    `xml:"class,attr" json:"class"`
	PackageName string    `xml:"package,attr" json:"package"`
	ContentDesc string    `xml:"content-desc,attr" json:"contentDesc"`
	IsClickable bool      `xml:"clickable,attr" json:"clickable"`
	IsEnabled   bool      `xml:"enabled,attr" json:"enabled"`
	IsFocusable bool      `xml:"focusable,attr" json:"focusable"`
	IsFocused   bool      `xml:"focused,attr" json:"focused"`
	IsPassword  bool      `xml:"password,attr" json:"password"`
	Bounds      string    `xml:"bounds,attr" json:"bounds"`
	Nodes       []Element `xml:"node" json:"nodes,omitempty"`
}

var _ Node = (*Element)(nil)

func (e *Element) Text() string { return e.TextValue }
func (e *Element) Label() string { return e.ContentDesc }
func (e *Element) Class() string { return e.ClassName }
func (e *Element) Package() string { return e.PackageName }
func (e *Element) Clickable() bool { return e.IsClickable }
func (e *Element) ChildCount() int { return len(e.Nodes) }

// Editable reports text fields. uiautomator has no editable attribute, so the class decides.
func (e *Element) Editable() bool {
	return strings.Contains(e.ClassName, "EditText")
}

func (e *Element) Child(i int) Node {
	if i < 0 || i >= len(e.Nodes) {
		return nil
	}
	return &e.Nodes[i]
}

// SetText replaces the text attribute, mirroring what the device shows after input.
func (e *Element) SetText(text string) {
	e.TextValue = text
}

// Hierarchy is the root document of a uiautomator dump.
type Hierarchy struct {
	XMLName  xml.Name  `xml:"hierarchy"`
	Rotation int       `xml:"rotation,attr"`
	Nodes    []Element `xml:"node"`
}

// ErrEmptyHierarchy is returned when a dump contains no nodes.
var ErrEmptyHierarchy = errors.New("ui hierarchy has no nodes")

// ParseHierarchy decodes raw `uiautomator dump` output.
// Leading or trailing shell noise is cut off and stray ampersands are escaped.
// Several top-level windows are wrapped in a synthetic container.
func ParseHierarchy(raw []byte) (*Element, error) {
	content := string(raw)
	if start := strings.Index(content, "<?xml"); start != -1 {
		content = content[start:]
	} else if start := strings.Index(content, "<hierarchy"); start != -1 {
		content = content[start:]
	}
	if end := strings.LastIndex(content, ">"); end != -1 && end < len(content)-1 {
		content = content[:end+1]
	}
	content = fixEntities(content)

	var h Hierarchy
	if err := xml.Unmarshal([]byte(content), &h); err != nil {
		return nil, fmt.Errorf("failed to parse ui xml (length: %d): %w", len(content), err)
	}

	switch len(h.Nodes) {
	case 0:
		return nil, ErrEmptyHierarchy
	case 1:
		return &h.Nodes[0], nil
	default:
		return &Element{
			ClassName:   "android.view.View",
			PackageName: h.Nodes[0].PackageName,
			Bounds:      "[0,0][0,0]",
			Nodes:       h.Nodes,
		}, nil
	}
}

// fixEntities escapes bare ampersands without double-escaping existing entities.
func fixEntities(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	for _, entity := range []string{"amp;", "lt;", "gt;", "quot;", "apos;", "#"} {
		s = strings.ReplaceAll(s, "&amp;"+entity, "&"+entity)
	}
	return s
}

// Rect is an on-screen rectangle in pixels.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Center returns the midpoint, where a tap lands.
func (r Rect) Center() (int, int) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

var boundsPattern = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

// ParseBounds parses the Android bounds format "[x1,y1][x2,y2]".
func ParseBounds(bounds string) (Rect, error) {
	m := boundsPattern.FindStringSubmatch(bounds)
	if len(m) != 5 {
		return Rect{}, fmt.Errorf("invalid bounds format: %q", bounds)
	}
	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Rect{}, fmt.Errorf("invalid bounds value %q: %w", m[i+1], err)
		}
		v[i] = n
	}
	return Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}
