package sunburst

import (
	"math"
	"strconv"
	"strings"
)

const epsilon = 1e-12

// ArcPath returns SVG path data for r drawn as an annular sector centred on
// the origin, with rings radius pixels wide. Angles start at 12 o'clock and
// run clockwise. Neighbouring sectors are separated by a pad angle of at
// most 0.005 rad measured at 1.5×radius, and the outer edge is pulled in by
// one pixel.
func ArcPath(r Rect, radius float64) string {
	r0 := r.Y0 * radius
	r1 := max(r.Y0*radius, r.Y1*radius-1)
	if r1 < r0 {
		r0, r1 = r1, r0
	}

	var p pathBuilder
	a0 := r.X0 - math.Pi/2
	a1 := r.X1 - math.Pi/2
	da := math.Abs(a1 - a0)
	cw := a1 > a0

	switch {
	case r1 <= epsilon:
		p.moveTo(0, 0)

	case da > Tau-epsilon:
		p.moveTo(r1*math.Cos(a0), r1*math.Sin(a0))
		p.arc(r1, a0, a1, cw)
		if r0 > epsilon {
			p.moveTo(r0*math.Cos(a1), r0*math.Sin(a1))
			p.arc(r0, a1, a0, !cw)
		}

	default:
		padAngle := min(r.Width()/2, 0.005)
		padRadius := radius * 1.5

		a00, a10 := a0, a1 // inner edge
		a01, a11 := a0, a1 // outer edge
		da0, da1 := da, da

		if ap := padAngle / 2; ap > epsilon {
			sign := 1.0
			if !cw {
				sign = -1
			}
			if r0 > epsilon {
				p0 := math.Asin(math.Min(1, padRadius/r0*math.Sin(ap)))
				if da0 -= p0 * 2; da0 > epsilon {
					a00 += sign * p0
					a10 -= sign * p0
				} else {
					da0 = 0
					a00, a10 = (a0+a1)/2, (a0+a1)/2
				}
			}
			p1 := math.Asin(math.Min(1, padRadius/r1*math.Sin(ap)))
			if da1 -= p1 * 2; da1 > epsilon {
				a01 += sign * p1
				a11 -= sign * p1
			} else {
				da1 = 0
				a01, a11 = (a0+a1)/2, (a0+a1)/2
			}
		}

		p.moveTo(r1*math.Cos(a01), r1*math.Sin(a01))
		if da1 > epsilon {
			p.arc(r1, a01, a11, cw)
		}
		if r0 <= epsilon || da0 <= epsilon {
			p.lineTo(r0*math.Cos(a10), r0*math.Sin(a10))
		} else {
			p.arc(r0, a10, a00, !cw)
		}
		p.close()
	}
	return p.String()
}

type pathBuilder struct {
	b      strings.Builder
	x, y   float64
	hasPos bool
}

func (p *pathBuilder) moveTo(x, y float64) {
	p.b.WriteString("M" + num(x) + "," + num(y))
	p.x, p.y, p.hasPos = x, y, true
}

func (p *pathBuilder) lineTo(x, y float64) {
	p.b.WriteString("L" + num(x) + "," + num(y))
	p.x, p.y, p.hasPos = x, y, true
}

func (p *pathBuilder) close() { p.b.WriteString("Z") }

// arc draws a circular arc of radius r around the origin from angle a0 to
// a1, joining it to the current point with a line if needed.
func (p *pathBuilder) arc(r, a0, a1 float64, cw bool) {
	x0, y0 := r*math.Cos(a0), r*math.Sin(a0)
	if !p.hasPos {
		p.moveTo(x0, y0)
	} else if math.Abs(p.x-x0) > 1e-6 || math.Abs(p.y-y0) > 1e-6 {
		p.lineTo(x0, y0)
	}
	if r <= 0 {
		return
	}

	da := a1 - a0
	if !cw {
		da = a0 - a1
	}
	if da < 0 {
		da = math.Mod(da, Tau) + Tau
	}
	sweep := "0"
	if cw {
		sweep = "1"
	}

	if da > Tau-epsilon {
		// A full circle needs two half arcs.
		xm, ym := -x0, -y0
		rs := num(r)
		p.b.WriteString("A" + rs + "," + rs + ",0,1," + sweep + "," + num(xm) + "," + num(ym))
		p.b.WriteString("A" + rs + "," + rs + ",0,1," + sweep + "," + num(x0) + "," + num(y0))
		p.x, p.y = x0, y0
		return
	}
	if da <= epsilon {
		return
	}
	large := "0"
	if da >= math.Pi {
		large = "1"
	}
	x1, y1 := r*math.Cos(a1), r*math.Sin(a1)
	rs := num(r)
	p.b.WriteString("A" + rs + "," + rs + ",0," + large + "," + sweep + "," + num(x1) + "," + num(y1))
	p.x, p.y = x1, y1
}

func (p *pathBuilder) String() string { return p.b.String() }

// num formats f with at most three decimals and no trailing zeros.
func num(f float64) string {
	if math.Abs(f) < 5e-4 {
		return "0"
	}
	return strconv.FormatFloat(math.Round(f*1000)/1000, 'f', -1, 64)
}
