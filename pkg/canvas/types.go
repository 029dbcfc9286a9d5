package canvas

import "encoding/json"

// NodeType is the kind tag of a canvas node.
type NodeType string

const (
	NodeText  NodeType = "text"
	NodeFile  NodeType = "file"
	NodeLink  NodeType = "link"
	NodeGroup NodeType = "group"
)

// Side is the anchor side of an edge endpoint.
type Side string

const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
)

// Rect is an axis-aligned rectangle in canvas coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Overlaps reports whether the two rectangles share any interior area.
// Rectangles that only touch along an edge do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width &&
		r.X+r.Width > o.X &&
		r.Y < o.Y+o.Height &&
		r.Y+r.Height > o.Y
}

// Node is a single canvas node. Payload fields are kept raw because
// editors write them either as bare strings or as small records; use the
// normalizers in payload.go to read them.
type Node struct {
	ID     string          `json:"id"`
	Type   NodeType        `json:"type"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Width  float64         `json:"width"`
	Height float64         `json:"height"`
	Text   json.RawMessage `json:"text,omitempty"`
	File   json.RawMessage `json:"file,omitempty"`
	URL    json.RawMessage `json:"url,omitempty"`
	Label  json.RawMessage `json:"label,omitempty"`

	// extra holds keys this package does not interpret (color, subpath,
	// background...). They are written back unchanged.
	extra map[string]json.RawMessage
}

// Rect returns the node's bounding rectangle.
func (n Node) Rect() Rect {
	return Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// Edge connects two nodes. FromNode/ToNode may reference ids that do not
// exist; such edges are tolerated and ignored by traversal.
type Edge struct {
	ID       string `json:"id"`
	FromNode string `json:"fromNode"`
	ToNode   string `json:"toNode"`
	FromSide Side   `json:"fromSide,omitempty"`
	ToSide   Side   `json:"toSide,omitempty"`
	Label    string `json:"label,omitempty"`

	extra map[string]json.RawMessage
}
