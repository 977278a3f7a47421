// Package visualization renders consensus profiles as charts.
package visualization

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
)

var (
	bandColor     = color.RGBA{R: 160, G: 190, B: 230, A: 255}
	medianColor   = color.RGBA{R: 20, G: 60, B: 140, A: 255}
	boundaryColor = color.RGBA{R: 200, G: 60, B: 40, A: 255}
)

// ProfileChart draws a median profile inside its interquartile band, with a
// dashed line at the start of each segment.
type ProfileChart struct {
	title    string
	median   profile.Profile
	lower    profile.Profile
	upper    profile.Profile
	segments []segment.Segment
}

// NewProfileChart creates a chart. lower and upper may be empty to draw the
// median alone.
func NewProfileChart(title string, median, lower, upper profile.Profile, segs []segment.Segment) *ProfileChart {
	return &ProfileChart{title: title, median: median, lower: lower, upper: upper, segments: segs}
}

// Plot builds the chart.
func (c *ProfileChart) Plot() (*plot.Plot, error) {
	if c.median.IsEmpty() {
		return nil, profile.Invalidf("chart %q has no median", c.title)
	}
	n := c.median.Len()
	if (!c.lower.IsEmpty() && c.lower.Len() != n) || (!c.upper.IsEmpty() && c.upper.Len() != n) {
		return nil, profile.Invalidf("chart %q quartiles differ in length from the median", c.title)
	}

	p := plot.New()
	p.Title.Text = c.title
	p.X.Label.Text = "Position"
	p.Y.Label.Text = "Value"
	p.X.Min, p.X.Max = 0, float64(n-1)

	if !c.lower.IsEmpty() && !c.upper.IsEmpty() {
		band := make(plotter.XYs, 0, 2*n)
		for i, v := range c.upper.Values() {
			band = append(band, plotter.XY{X: float64(i), Y: v})
		}
		lower := c.lower.Values()
		for i := n - 1; i >= 0; i-- {
			band = append(band, plotter.XY{X: float64(i), Y: lower[i]})
		}
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return nil, err
		}
		poly.Color = bandColor
		poly.LineStyle.Width = 0
		p.Add(poly)
		p.Legend.Add("IQR", poly)
	}

	pts := make(plotter.XYs, n)
	for i, v := range c.median.Values() {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = medianColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("Median", line)

	lo, hi := c.median.Min(), c.median.Max()
	if !c.lower.IsEmpty() {
		lo = min(lo, c.lower.Min())
	}
	if !c.upper.IsEmpty() {
		hi = max(hi, c.upper.Max())
	}
	for _, s := range c.segments {
		if s.IsDefault() {
			continue
		}
		x := float64(s.Start())
		b, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
		if err != nil {
			return nil, err
		}
		b.Color = boundaryColor
		b.Width = vg.Points(0.75)
		b.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
		p.Add(b)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	return p, nil
}

// Render writes the chart to w, width by height centimetres, in format
// (png, svg, pdf and the other formats gonum/plot supports).
func (c *ProfileChart) Render(w io.Writer, width, height float64, format string) error {
	p, err := c.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(vg.Length(width)*vg.Centimeter, vg.Length(height)*vg.Centimeter, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save writes the chart to path, width by height centimetres. The format
// follows the file extension.
func (c *ProfileChart) Save(path string, width, height float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating chart directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating chart file: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if err := c.Render(f, width, height, format); err != nil {
		f.Close()
		return fmt.Errorf("error rendering %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
