package report

import (
	"bytes"
	"context"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

// ChartRenderer рисует торсион по времени в PNG.
type ChartRenderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewChartRenderer создаёт рендерер с размером 10x4 дюйма.
func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{Width: 10 * vg.Inch, Height: 4 * vg.Inch}
}

var (
	referenceColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	previousColor  = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// Render строит график. Пропуски разрывают линию.
func (r *ChartRenderer) Render(ctx context.Context, result *entity.TorsionResult) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Ocular torsion"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Torsion (deg)"
	p.Add(plotter.NewGrid())

	segments := segmentsOf(result, result.ByReference)
	for i, pts := range segments {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("reference line: %w", err)
		}
		line.Color = referenceColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		if i == 0 {
			p.Legend.Add("vs reference", line)
		}
	}

	var prev plotter.XYs
	for _, seg := range segmentsOf(result, result.ByPrevious) {
		prev = append(prev, seg...)
	}
	if len(prev) > 0 {
		scatter, err := plotter.NewScatter(prev)
		if err != nil {
			return nil, fmt.Errorf("previous scatter: %w", err)
		}
		scatter.Color = previousColor
		scatter.Radius = vg.Points(1.5)
		p.Add(scatter)
		p.Legend.Add("vs previous frame", scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	w, err := p.WriterTo(r.Width, r.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write chart: %w", err)
	}
	return buf.Bytes(), nil
}

// segmentsOf разбивает ряд на непрерывные участки валидных оценок.
func segmentsOf(result *entity.TorsionResult, series *entity.Series) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i := series.Start(); i < series.End(); i++ {
		e, _ := series.At(i)
		if !e.Valid {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: result.FrameTime(i), Y: e.Degrees})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

var _ port.ResultRenderer = (*ChartRenderer)(nil)
