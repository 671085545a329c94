package viz

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// Field is one labelled line of a report.
type Field struct {
	Label string
	Value string
}

func F(label, format string, args ...any) Field {
	return Field{Label: label, Value: fmt.Sprintf(format, args...)}
}

// Report renders a titled panel of aligned label/value lines.
func Report(title string, fields []Field) string {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Label))
	}

	lines := []string{Title.Render(title)}
	for _, f := range fields {
		label := f.Label + ":" + strings.Repeat(" ", width-len(f.Label)+1)
		lines = append(lines, MetricLabel.Render(label)+MetricValue.Render(f.Value))
	}
	return Panel.Render(strings.Join(lines, "\n"))
}

// MetricFields turns a metric map into fields sorted by name.
func MetricFields(m map[string]float64) []Field {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Field, len(names))
	for i, name := range names {
		out[i] = F(name, "%.6g", m[name])
	}
	return out
}

// Plot draws series as an ASCII line chart.
func Plot(w io.Writer, series []float64, caption string) error {
	if len(series) == 0 {
		return fmt.Errorf("no data to plot")
	}
	graph := asciigraph.Plot(series,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	_, err := fmt.Fprintln(w, graph)
	return err
}
