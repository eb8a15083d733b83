package sunburst

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// basePalette is used when the top ring has few enough arcs.
var basePalette = []string{
	"#e63946", "#2a9d8f", "#f4a261", "#457b9d", "#e76f51",
	"#06d6a0", "#118ab2", "#ffd166", "#ef476f", "#073b4c",
	"#8338ec", "#3a86ff", "#fb5607", "#ff006e", "#8ac926",
	"#ffbe0b", "#06aed5", "#dd1c1a", "#9381ff", "#06d6a0",
}

// Chart accents.
const (
	CenterFill  = "#2a9d8f"
	CenterHover = "#457b9d"
	LabelColor  = "rgba(0, 0, 0, 0.87)"
)

// Palette returns n distinct colours. Up to len(basePalette) it returns a
// prefix of a fixed list, beyond that n evenly spaced rainbow samples.
func Palette(n int) []string {
	if n <= len(basePalette) {
		return append([]string(nil), basePalette[:max(n, 0)]...)
	}
	out := make([]string, n)
	for i := range n {
		out[i] = Rainbow(float64(i) / float64(n-1))
	}
	return out
}

// Rainbow samples the cyclical cubehelix rainbow at t in [0, 1].
func Rainbow(t float64) string {
	t = t - math.Floor(t)
	ts := math.Abs(t - 0.5)
	h := 360*t - 100
	s := 1.5 - 1.5*ts
	l := 0.8 - 0.9*ts
	return cubehelix(h, s, l).Clamped().Hex()
}

func cubehelix(h, s, l float64) colorful.Color {
	const (
		a = -0.14861
		b = +1.78277
		c = -0.29227
		d = -0.90649
		e = +1.97294
	)
	rad := (h + 120) * math.Pi / 180
	amp := s * l * (1 - l)
	cosh, sinh := math.Cos(rad), math.Sin(rad)
	return colorful.Color{
		R: l + amp*(a*cosh+b*sinh),
		G: l + amp*(c*cosh+d*sinh),
		B: l + amp*(e*cosh),
	}
}

// Colors assigns a colour to every top-level arc of l, by name. Deeper arcs
// take the colour of their depth-1 ancestor (see [Arc.Top]).
func Colors(l *Layout) map[string]string {
	top := l.Root.Children
	palette := Palette(len(top) + 1)
	colors := make(map[string]string, len(top))
	for i, a := range top {
		colors[a.Name()] = palette[i%len(palette)]
	}
	return colors
}
