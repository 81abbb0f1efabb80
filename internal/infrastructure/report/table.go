package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

// TableHeader задаёт столбцы CSV-выгрузки.
var TableHeader = []string{
	"frame", "time_s", "torsion_deg", "torsion_prev_deg", "state", "reason",
	"pupil_col", "pupil_row", "pupil_radius",
}

// TableRenderer выгружает результат в CSV, одна строка на кадр.
// Пропуски записываются пустыми ячейками.
type TableRenderer struct{}

func (TableRenderer) Render(ctx context.Context, result *entity.TorsionResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(TableHeader); err != nil {
		return nil, err
	}

	for k, i := 0, result.Start; i < result.End; k, i = k+1, i+1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		byRef, _ := result.ByReference.At(i)
		byPrev, _ := result.ByPrevious.At(i)

		var state string
		if k < len(result.States) {
			state = string(result.States[k])
		}

		record := []string{
			strconv.Itoa(i),
			formatFloat(result.FrameTime(i)),
			formatEstimate(byRef),
			formatEstimate(byPrev),
			state,
			string(byRef.Reason),
			"", "", "",
		}
		if p := result.Pupils[i]; p != nil {
			record[6] = formatFloat(p.CenterCol)
			record[7] = formatFloat(p.CenterRow)
			record[8] = formatFloat(p.Radius)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatEstimate(e entity.Estimate) string {
	if !e.Valid {
		return ""
	}
	return formatFloat(e.Degrees)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

var _ port.ResultRenderer = TableRenderer{}
