package annotation

// CurrentVersion is the IR version written by this service.
const CurrentVersion = 1

// ShapeType names the geometry of a shape.
type ShapeType string

// Supported shape geometries.
const (
	ShapeRectangle ShapeType = "rectangle"
	ShapePolygon   ShapeType = "polygon"
	ShapePolyline  ShapeType = "polyline"
	ShapePoints    ShapeType = "points"
	ShapeEllipse   ShapeType = "ellipse"
	ShapeCuboid    ShapeType = "cuboid"
)

// Attribute is a label attribute value attached to an annotation.
type Attribute struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Tag is a frame-level label without geometry.
type Tag struct {
	Frame      int         `json:"frame" yaml:"frame"`
	Label      string      `json:"label" yaml:"label"`
	Group      int         `json:"group,omitempty" yaml:"group,omitempty"`
	Source     string      `json:"source,omitempty" yaml:"source,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Shape is a single-frame annotation with geometry.
type Shape struct {
	Type       ShapeType   `json:"type" yaml:"type"`
	Frame      int         `json:"frame" yaml:"frame"`
	Label      string      `json:"label" yaml:"label"`
	Points     []float64   `json:"points" yaml:"points,flow"`
	Occluded   bool        `json:"occluded,omitempty" yaml:"occluded,omitempty"`
	ZOrder     int         `json:"z_order,omitempty" yaml:"z_order,omitempty"`
	Group      int         `json:"group,omitempty" yaml:"group,omitempty"`
	Source     string      `json:"source,omitempty" yaml:"source,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// TrackedShape is one keyframe of a track.
type TrackedShape struct {
	Type     ShapeType `json:"type" yaml:"type"`
	Frame    int       `json:"frame" yaml:"frame"`
	Points   []float64 `json:"points" yaml:"points,flow"`
	Outside  bool      `json:"outside,omitempty" yaml:"outside,omitempty"`
	Occluded bool      `json:"occluded,omitempty" yaml:"occluded,omitempty"`
	Keyframe bool      `json:"keyframe,omitempty" yaml:"keyframe,omitempty"`
}

// Track is an object followed across frames.
type Track struct {
	Frame      int            `json:"frame" yaml:"frame"`
	Label      string         `json:"label" yaml:"label"`
	Group      int            `json:"group,omitempty" yaml:"group,omitempty"`
	Source     string         `json:"source,omitempty" yaml:"source,omitempty"`
	Shapes     []TrackedShape `json:"shapes" yaml:"shapes"`
	Attributes []Attribute    `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// IR is the annotation set of one task.
type IR struct {
	Version int     `json:"version" yaml:"version"`
	Tags    []Tag   `json:"tags" yaml:"tags"`
	Shapes  []Shape `json:"shapes" yaml:"shapes"`
	Tracks  []Track `json:"tracks" yaml:"tracks"`
}

// NewIR returns an empty IR at the current version.
func NewIR() *IR {
	return &IR{
		Version: CurrentVersion,
		Tags:    []Tag{},
		Shapes:  []Shape{},
		Tracks:  []Track{},
	}
}

// Reset drops all annotations and keeps the version.
func (ir *IR) Reset() {
	ir.Tags = []Tag{}
	ir.Shapes = []Shape{}
	ir.Tracks = []Track{}
}

// IsEmpty reports whether the IR carries no annotations.
func (ir *IR) IsEmpty() bool {
	return len(ir.Tags) == 0 && len(ir.Shapes) == 0 && len(ir.Tracks) == 0
}

// Len is the total number of tags, shapes and tracks.
func (ir *IR) Len() int {
	return len(ir.Tags) + len(ir.Shapes) + len(ir.Tracks)
}

// Add appends the annotations of other to ir.
func (ir *IR) Add(other *IR) {
	if other == nil {
		return
	}
	ir.Tags = append(ir.Tags, other.Tags...)
	ir.Shapes = append(ir.Shapes, other.Shapes...)
	ir.Tracks = append(ir.Tracks, other.Tracks...)
}

// Clone returns a deep copy of ir.
func (ir *IR) Clone() *IR {
	out := &IR{Version: ir.Version}

	out.Tags = make([]Tag, len(ir.Tags))
	for i, t := range ir.Tags {
		t.Attributes = cloneAttrs(t.Attributes)
		out.Tags[i] = t
	}

	out.Shapes = make([]Shape, len(ir.Shapes))
	for i, s := range ir.Shapes {
		s.Points = append([]float64(nil), s.Points...)
		s.Attributes = cloneAttrs(s.Attributes)
		out.Shapes[i] = s
	}

	out.Tracks = make([]Track, len(ir.Tracks))
	for i, tr := range ir.Tracks {
		shapes := make([]TrackedShape, len(tr.Shapes))
		for j, ts := range tr.Shapes {
			ts.Points = append([]float64(nil), ts.Points...)
			shapes[j] = ts
		}
		tr.Shapes = shapes
		tr.Attributes = cloneAttrs(tr.Attributes)
		out.Tracks[i] = tr
	}
	return out
}

// Labels returns the distinct label names used in ir, in first-seen order.
func (ir *IR) Labels() []string {
	seen := make(map[string]struct{})
	var labels []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		labels = append(labels, name)
	}
	for _, t := range ir.Tags {
		add(t.Label)
	}
	for _, s := range ir.Shapes {
		add(s.Label)
	}
	for _, tr := range ir.Tracks {
		add(tr.Label)
	}
	return labels
}

func cloneAttrs(in []Attribute) []Attribute {
	if in == nil {
		return nil
	}
	return append([]Attribute(nil), in...)
}
