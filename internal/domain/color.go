package domain

import (
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"
)

// DimensionCluster colors markers by their categorical cluster id.
const DimensionCluster = ColCluster

// DefaultColor is used for dimensions that are neither the cluster nor a
// numeric column of the view.
const DefaultColor = "#0000ff"

// Palette is an ordered list of "#rrggbb" colors.
type Palette []string

// Set1 is the 9-color qualitative palette used for clusters.
var Set1 = Palette{
	"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00",
	"#ffff33", "#a65628", "#f781bf", "#999999",
}

// Color returns the palette entry for a cluster id. Ids wrap modulo the
// palette size so every int has a color.
func (p Palette) Color(cluster int) string {
	if len(p) == 0 {
		return DefaultColor
	}
	i := cluster % len(p)
	if i < 0 {
		i += len(p)
	}
	return p[i]
}

type scaleKind int

const (
	scaleFallback scaleKind = iota
	scaleCluster
	scaleContinuous
)

// ColorScale maps values of one dimension of a view to colors. Bounds of a
// continuous dimension are taken from the view it was built from, so the same
// station can get a different color under a different filter.
type ColorScale struct {
	dimension string
	kind      scaleKind
	palette   Palette
	vmin      float64
	vmax      float64
}

// NewColorScale inspects view once and fixes the scale for dimension.
func NewColorScale(view RecordSet, dimension string, palette Palette) ColorScale {
	s := ColorScale{dimension: dimension, palette: palette}
	switch {
	case dimension == DimensionCluster:
		s.kind = scaleCluster
	case view.IsNumeric(dimension):
		s.kind = scaleContinuous
		s.vmin, s.vmax = bounds(view.Floats(dimension))
	default:
		s.kind = scaleFallback
	}
	return s
}

// Dimension returns the dimension the scale was built for.
func (s ColorScale) Dimension() string {
	return s.dimension
}

// Continuous reports whether the scale normalizes a numeric column.
func (s ColorScale) Continuous() bool {
	return s.kind == scaleContinuous
}

// Bounds returns the view's min and max for a continuous scale.
func (s ColorScale) Bounds() (float64, float64) {
	return s.vmin, s.vmax
}

// ColorOf returns the color of one value. For the cluster dimension the value
// is the cluster id.
func (s ColorScale) ColorOf(value float64) string {
	switch s.kind {
	case scaleCluster:
		if math.IsNaN(value) {
			return s.palette.Color(0)
		}
		return s.palette.Color(int(value))
	case scaleContinuous:
		return GradientColor(s.normalize(value))
	default:
		return DefaultColor
	}
}

// normalize maps value into [0, 1]. A degenerate scale or a missing value
// gives 0, the low end.
func (s ColorScale) normalize(value float64) float64 {
	if !(s.vmax > s.vmin) || math.IsNaN(value) {
		return 0
	}
	t := (value - s.vmin) / (s.vmax - s.vmin)
	if math.IsNaN(t) {
		return 0
	}
	return math.Max(0, math.Min(1, t))
}

// GradientColor interpolates from red at t=0 to green at t=1.
func GradientColor(t float64) string {
	red := int(255 * (1 - t))
	green := int(255 * t)
	return fmt.Sprintf("#%02x%02x00", red, green)
}

// EncodeColors returns one color per row of view for dimension.
func EncodeColors(view RecordSet, dimension string, palette Palette) []string {
	scale := NewColorScale(view, dimension, palette)
	colors := make([]string, view.Len())

	switch scale.kind {
	case scaleCluster:
		for i, id := range view.Clusters() {
			colors[i] = palette.Color(id)
		}
	case scaleContinuous:
		for i, v := range view.Floats(dimension) {
			colors[i] = scale.ColorOf(v)
		}
	default:
		for i := range colors {
			colors[i] = DefaultColor
		}
	}
	return colors
}

// bounds returns min and max over the non-missing values, or (0, 0) when
// nothing is present.
func bounds(values []float64) (float64, float64) {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return 0, 0
	}
	return stats.Bounds(present)
}
