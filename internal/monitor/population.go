package monitor

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/gesturelife/internal/control"
)

// DefaultPopulationCapacity bounds how many generations are kept.
const DefaultPopulationCapacity = 10000

// PopulationPoint is the live cell count after one generation.
type PopulationPoint struct {
	Generation uint64 `json:"generation"`
	Population int    `json:"population"`
}

// PopulationSummary describes the recorded population series.
type PopulationSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

// PopulationRecorder keeps the population of the most recent generations.
// It implements control.Observer; reads are safe from other goroutines.
type PopulationRecorder struct {
	mu       sync.Mutex
	capacity int
	points   []PopulationPoint
	lastGen  uint64
	seen     bool
}

// NewPopulationRecorder keeps up to capacity generations (default
// DefaultPopulationCapacity when capacity <= 0).
func NewPopulationRecorder(capacity int) *PopulationRecorder {
	if capacity <= 0 {
		capacity = DefaultPopulationCapacity
	}
	return &PopulationRecorder{capacity: capacity}
}

// Observe appends a point whenever the generation changes.
func (p *PopulationRecorder) Observe(s control.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seen && s.Generation == p.lastGen {
		return
	}
	p.seen = true
	p.lastGen = s.Generation
	if s.Generation == 0 {
		return
	}
	if len(p.points) == p.capacity {
		copy(p.points, p.points[1:])
		p.points = p.points[:len(p.points)-1]
	}
	p.points = append(p.points, PopulationPoint{Generation: s.Generation, Population: s.Population})
}

// Points returns a copy of the recorded series.
func (p *PopulationRecorder) Points() []PopulationPoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.points)
}

// Summary computes statistics over the recorded series. The zero summary
// is returned when nothing has been recorded.
func (p *PopulationRecorder) Summary() PopulationSummary {
	pts := p.Points()
	if len(pts) == 0 {
		return PopulationSummary{}
	}
	xs := make([]float64, len(pts))
	for i, pt := range pts {
		xs[i] = float64(pt.Population)
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	slices.Sort(xs)
	return PopulationSummary{
		Count:  len(xs),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(xs),
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, xs, nil),
		Max:    floats.Max(xs),
	}
}

func (p *PopulationRecorder) plot() (*plot.Plot, error) {
	pts := p.Points()
	if len(pts) == 0 {
		return nil, fmt.Errorf("no generations recorded")
	}

	pl := plot.New()
	pl.Title.Text = "Population by generation"
	pl.X.Label.Text = "Generation"
	pl.Y.Label.Text = "Live cells"
	pl.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i].X = float64(pt.Generation)
		xys[i].Y = float64(pt.Population)
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("population line: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 158, B: 137, A: 255}
	line.Width = vg.Points(1)
	pl.Add(line)

	if s := p.Summary(); s.Count > 1 {
		mean, err := plotter.NewLine(plotter.XYs{
			{X: xys[0].X, Y: s.Mean},
			{X: xys[len(xys)-1].X, Y: s.Mean},
		})
		if err != nil {
			return nil, fmt.Errorf("mean line: %w", err)
		}
		mean.Color = color.RGBA{R: 253, G: 231, B: 37, A: 255}
		mean.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		pl.Add(mean)
		pl.Legend.Add("population", line)
		pl.Legend.Add(fmt.Sprintf("mean %.1f", s.Mean), mean)
		pl.Legend.Top = true
	}
	return pl, nil
}

// WritePNG renders the population plot as a PNG.
func (p *PopulationRecorder) WritePNG(w io.Writer) error {
	pl, err := p.plot()
	if err != nil {
		return err
	}
	wt, err := pl.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes the population plot to dir/population.png and returns
// the path.
func (p *PopulationRecorder) SavePNG(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create plot dir: %w", err)
	}
	pl, err := p.plot()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "population.png")
	if err := pl.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save population plot: %w", err)
	}
	return path, nil
}
