// Package charts renders dashboard summaries as PNG bar charts.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"salesdash/internal/core"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

const (
	ExtremesTitle = "Most and Least Sold Product Categories"
	xLabelCat     = "Product Category"
	xLabelMonth   = "Month"
	yLabel        = "Number of Sales"
	legendTitle   = "Product Category"
)

var numberWords = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten"}

// MonthlyTitle returns the heading of the monthly ranking, e.g.
// "Top Three Selling Categories 2017".
func MonthlyTitle(year, n int) string {
	word := strconv.Itoa(n)
	if n > 0 && n < len(numberWords) {
		word = numberWords[n]
	}
	return fmt.Sprintf("Top %s Selling Categories %d", word, year)
}

// Size is the output image size.
type Size struct {
	Width  vg.Length
	Height vg.Length
}

var (
	ExtremesSize = Size{Width: 10 * vg.Inch, Height: 5 * vg.Inch}
	MonthlySize  = Size{Width: 12 * vg.Inch, Height: 6 * vg.Inch}
)

var (
	mostColor  = color.RGBA{R: 68, G: 1, B: 84, A: 255}
	leastColor = color.RGBA{R: 253, G: 231, B: 37, A: 255}
)

// Extremes draws the most and least sold categories side by side.
func Extremes(w io.Writer, ext *core.Extremes, size Size) error {
	if ext == nil {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = ExtremesTitle
	p.X.Label.Text = xLabelCat
	p.Y.Label.Text = yLabel
	p.Y.Min = 0

	barWidth := vg.Points(60)
	most, err := plotter.NewBarChart(plotter.Values{float64(ext.Most.Count)}, barWidth)
	if err != nil {
		return fmt.Errorf("most bar: %w", err)
	}
	most.Color = mostColor
	most.LineStyle.Width = vg.Length(0)

	least, err := plotter.NewBarChart(plotter.Values{float64(ext.Least.Count)}, barWidth)
	if err != nil {
		return fmt.Errorf("least bar: %w", err)
	}
	least.Color = leastColor
	least.LineStyle.Width = vg.Length(0)
	least.XMin = 1

	p.Add(most, least, plotter.NewGrid())
	p.NominalX(ext.Most.Category, ext.Least.Category)
	p.Y.Max = headroom(ext.Most.Count)

	return write(w, p, size)
}

// MonthlyTop draws one group of bars per month with one bar per ranked
// category, colored consistently across months.
func MonthlyTop(w io.Writer, title string, ranking []core.MonthRanking, size Size) error {
	if len(ranking) == 0 {
		return ErrNoData
	}

	cats, byCat := pivot(ranking)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabelMonth
	p.Y.Label.Text = yLabel
	p.Y.Min = 0
	p.Legend.Top = true
	p.Legend.Add(legendTitle)

	groupWidth := vg.Points(float64(min(40*len(cats), 90)))
	barWidth := groupWidth / vg.Length(len(cats))
	maxCount := 0
	for i, cat := range cats {
		bars, err := plotter.NewBarChart(byCat[cat], barWidth)
		if err != nil {
			return fmt.Errorf("bars for %s: %w", cat, err)
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = barWidth * vg.Length(float64(i)-float64(len(cats)-1)/2)
		p.Add(bars)
		p.Legend.Add(cat, bars)
		for _, v := range byCat[cat] {
			maxCount = max(maxCount, int(v))
		}
	}

	labels := make([]string, len(ranking))
	for i, mr := range ranking {
		labels[i] = mr.Name
	}
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Y.Max = headroom(maxCount)
	p.Add(plotter.NewGrid())

	return write(w, p, size)
}

// pivot returns the ranked categories in order of first appearance and,
// for each, its count in every month (zero where it is not ranked).
func pivot(ranking []core.MonthRanking) ([]string, map[string]plotter.Values) {
	var cats []string
	byCat := map[string]plotter.Values{}
	for i, mr := range ranking {
		for _, c := range mr.Top {
			vals, ok := byCat[c.Category]
			if !ok {
				vals = make(plotter.Values, len(ranking))
				cats = append(cats, c.Category)
			}
			vals[i] = float64(c.Count)
			byCat[c.Category] = vals
		}
	}
	return cats, byCat
}

func headroom(maxCount int) float64 {
	if maxCount <= 0 {
		return 1
	}
	return float64(maxCount) * 1.1
}

func write(w io.Writer, p *plot.Plot, size Size) error {
	wt, err := p.WriterTo(size.Width, size.Height, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
