package telegram

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ocular-torsion/internal/domain/entity"
)

// Summary формирует текстовую сводку результата для пользователя.
func Summary(result *entity.TorsionResult) string {
	total := result.End - result.Start
	var sb strings.Builder

	fmt.Fprintf(&sb, "📊 Торсион: кадры %d–%d, опорный кадр %d\n", result.Start, result.End-1, result.Reference)
	fmt.Fprintf(&sb, "Режим: %s, %s\n", result.Settings.Transform.Name(), result.Settings.Correlation.Mode)
	fmt.Fprintf(&sb, "✅ Измерено: %d из %d\n", result.ValidCount(), total)

	lo, hi := math.Inf(1), math.Inf(-1)
	reasons := map[entity.FailureReason]int{}
	for _, e := range result.ByReference.Values() {
		if !e.Valid {
			reasons[e.Reason]++
			continue
		}
		lo = math.Min(lo, e.Degrees)
		hi = math.Max(hi, e.Degrees)
	}
	if hi >= lo {
		fmt.Fprintf(&sb, "↔️ Диапазон: %.2f° … %.2f°\n", lo, hi)
	}

	if len(reasons) > 0 {
		keys := make([]string, 0, len(reasons))
		for r := range reasons {
			keys = append(keys, string(r))
		}
		sort.Strings(keys)

		sb.WriteString("⚠️ Пропуски:")
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%d", k, reasons[entity.FailureReason(k)])
		}
		sb.WriteString("\n")
	}

	if result.ID != "" {
		fmt.Fprintf(&sb, "🆔 %s", result.ID)
	}
	return strings.TrimRight(sb.String(), "\n")
}
