package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Sparkline draws the last Width values on one line, scaled to the largest
// visible value.
type Sparkline struct {
	Data  []int
	Width int
	Max   int
	Style lipgloss.Style
	Label string
}

func NewSparkline(width int, label string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Width: width,
		Label: label,
		Style: style,
		Data:  make([]int, 0, width),
	}
}

func (s *Sparkline) Add(val int) {
	if val < 0 {
		val = 0
	}
	s.Data = append(s.Data, val)
	if len(s.Data) > s.Width {
		s.Data = s.Data[len(s.Data)-s.Width:]
	}

	max := 0
	for _, v := range s.Data {
		if v > max {
			max = v
		}
	}
	s.Max = max
}

func (s Sparkline) Graph() string {
	var graph strings.Builder
	for _, v := range s.Data {
		if s.Max == 0 {
			graph.WriteString(levels[0])
			continue
		}

		idx := v * (len(levels) - 1) / s.Max
		if idx >= len(levels) {
			idx = len(levels) - 1
		}
		graph.WriteString(levels[idx])
	}

	if pad := s.Width - len(s.Data); pad > 0 {
		graph.WriteString(strings.Repeat(" ", pad))
	}

	return graph.String()
}

func (s Sparkline) View() string {
	if s.Width <= 0 {
		return ""
	}

	label := s.Label
	if n := len(s.Data); n > 0 {
		label = fmt.Sprintf("%s (last %d, max %d)", s.Label, s.Data[n-1], s.Max)
	}

	return s.Style.Render(label) + "\n" + s.Style.Render(s.Graph())
}
