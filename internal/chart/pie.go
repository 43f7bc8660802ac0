package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/user/datacharts-go/internal/models"
)

// pieChart draws slices counterclockwise from startAngle, labelled with
// their share of the total.
type pieChart struct {
	labels     []string
	values     []float64
	colors     []color.Color
	startAngle float64 // radians
	radius     float64 // fraction of the half-extent of the canvas
}

// newPie keeps only sources with a positive capacity.
func newPie(caps []models.SourceCapacity) *pieChart {
	pc := &pieChart{startAngle: 140 * math.Pi / 180, radius: 0.85}
	for _, c := range caps {
		if !(c.Capacity > 0) {
			continue
		}
		pc.labels = append(pc.labels, c.Source)
		pc.values = append(pc.values, c.Capacity)
		pc.colors = append(pc.colors, pieColors[len(pc.colors)%len(pieColors)])
	}
	return pc
}

func (pc *pieChart) total() float64 {
	var t float64
	for _, v := range pc.values {
		t += v
	}
	return t
}

// Plot implements plot.Plotter.
func (pc *pieChart) Plot(c draw.Canvas, plt *plot.Plot) {
	total := pc.total()
	if total <= 0 {
		return
	}

	center := vg.Point{X: (c.Min.X + c.Max.X) / 2, Y: (c.Min.Y + c.Max.Y) / 2}
	half := min(c.Max.X-c.Min.X, c.Max.Y-c.Min.Y) / 2
	r := half * vg.Length(pc.radius)

	sty := plt.Legend.TextStyle
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YCenter

	angle := pc.startAngle
	for i, v := range pc.values {
		sweep := 2 * math.Pi * v / total

		var p vg.Path
		p.Move(center)
		p.Line(polar(center, r, angle))
		p.Arc(center, r, angle, sweep)
		p.Close()
		c.SetColor(pc.colors[i%len(pc.colors)])
		c.Fill(p)

		mid := angle + sweep/2
		c.FillText(sty, polar(center, r*0.6, mid), fmt.Sprintf("%.1f%%", 100*v/total))
		angle += sweep
	}
}

func polar(center vg.Point, r vg.Length, angle float64) vg.Point {
	return vg.Point{
		X: center.X + r*vg.Length(math.Cos(angle)),
		Y: center.Y + r*vg.Length(math.Sin(angle)),
	}
}

// sliceThumb is the legend entry for one slice.
type sliceThumb struct {
	color color.Color
}

// Thumbnail implements plot.Thumbnailer.
func (s sliceThumb) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.color, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	})
}
