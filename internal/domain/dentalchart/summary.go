package dentalchart

import (
	"fmt"
	"strings"
)

// Summary renders the non-baseline teeth as plain text, one line per tooth
// in chart order, for clipboard and export use.
func Summary(state ChartState) string {
	var b strings.Builder
	for _, row := range [][]int{UpperRow(), LowerRow()} {
		for _, id := range row {
			rec := state.Teeth[id-1]
			if rec.IsBaseline() {
				continue
			}
			fmt.Fprintf(&b, "%s (%s): %s\n", ToDisplay(id), strings.ReplaceAll(string(Classify(id).Type), "_", " "), findings(rec))
		}
	}
	if b.Len() == 0 {
		return "No findings.\n"
	}
	return b.String()
}

func findings(rec ToothRecord) string {
	var parts []string
	if rec.WholeCondition != WholeNone {
		parts = append(parts, Label(rec.WholeCondition))
	}
	var surfaces []string
	for _, s := range Surfaces {
		if c := rec.Surfaces[s]; c != Healthy {
			surfaces = append(surfaces, s.String()+" "+Label(c))
		}
	}
	if len(surfaces) > 0 {
		parts = append(parts, strings.Join(surfaces, ", "))
	}
	if rec.Mobility > 0 {
		parts = append(parts, fmt.Sprintf("mobility %d", rec.Mobility))
	}
	if rec.Note != "" {
		parts = append(parts, fmt.Sprintf("note %q", rec.Note))
	}
	return strings.Join(parts, "; ")
}
