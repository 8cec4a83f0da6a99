// Package report formats the objective breakdown and evaluation history for
// the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/forcefit/internal/objective"
)

// Status classifies how a contribution moved since the previous report.
type Status int

const (
	New Status = iota
	Unchanged
	Improved
	Worsened
)

func (s Status) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Improved:
		return "improved"
	case Worsened:
		return "worsened"
	}
	return "new"
}

type Row struct {
	Name         string
	X            float64
	Weight       float64
	Contribution float64
	// Delta is only meaningful when Status is not New.
	Delta  float64
	Status Status
}

type Report struct {
	Rows  []Row
	Total float64
}

// HasDeltas reports whether any row could be compared to a previous value.
func (r Report) HasDeltas() bool {
	for _, row := range r.Rows {
		if row.Status != New {
			return true
		}
	}
	return false
}

// Count returns the number of rows with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, row := range r.Rows {
		if row.Status == s {
			n++
		}
	}
	return n
}

// Render compares current with previous row by row, in the insertion order
// of current.
func Render(current, previous *objective.Breakdown) Report {
	rep := Report{Rows: make([]Row, 0, current.Len())}
	for _, name := range current.Names() {
		e, _ := current.Get(name)
		row := Row{
			Name:         name,
			X:            e.X,
			Weight:       e.Weight,
			Contribution: e.Contribution(),
			Status:       New,
		}
		if p, ok := previous.Get(name); ok {
			row.Delta = row.Contribution - p.Contribution()
			switch {
			case row.Delta < 0:
				row.Status = Improved
			case row.Delta > 0:
				row.Status = Worsened
			default:
				row.Status = Unchanged
			}
		}
		rep.Total += row.Contribution
		rep.Rows = append(rep.Rows, row)
	}
	return rep
}

func (r Report) Title() string {
	return fmt.Sprintf("Objective Function Breakdown, Total = % .5e", r.Total)
}

func (r Report) String() string {
	width := len("Simulation Name")
	for _, row := range r.Rows {
		width = max(width, len(row.Name))
	}

	header := "Residual  x  Weight  =  Contribution"
	if r.HasDeltas() {
		header += " (Current-Last)"
	}

	var sb strings.Builder
	sb.WriteString(TitleStyle.Render(r.Title()))
	sb.WriteString("\n")
	sb.WriteString(HeaderStyle.Render(fmt.Sprintf("%-*s   %s", width, "Simulation Name", header)))
	sb.WriteString("\n")
	for _, row := range r.Rows {
		style := UnchangedStyle
		switch row.Status {
		case Improved:
			style = ImprovedStyle
		case Worsened:
			style = WorsenedStyle
		}
		line := fmt.Sprintf("%-*s   % 12.5f % 10.3f ", width, row.Name, row.X, row.Weight) +
			style.Render(fmt.Sprintf("% 16.5e", row.Contribution))
		if row.Status != New {
			line += fmt.Sprintf(" ( %+10.3e )", row.Delta)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

type Option func(*Reporter)

// WithPanel draws the report inside a rounded border.
func WithPanel(on bool) Option {
	return func(r *Reporter) { r.panel = on }
}

// Reporter writes breakdown reports to a sink.
type Reporter struct {
	w     io.Writer
	panel bool
	last  Report
}

func NewReporter(w io.Writer, opts ...Option) *Reporter {
	r := &Reporter{w: w}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reporter) Render(current, previous *objective.Breakdown) Report {
	return Render(current, previous)
}

// Last returns the most recently written report.
func (r *Reporter) Last() Report { return r.last }

// Report writes the ledger's breakdown and then advances the ledger.
func (r *Reporter) Report(l *objective.Ledger) error {
	cur, prev := l.Snapshot()
	rep := r.Render(cur, prev)

	out := rep.String()
	if r.panel {
		out = Panel.Render(strings.TrimSuffix(out, "\n")) + "\n"
	}
	if _, err := io.WriteString(r.w, out); err != nil {
		return err
	}
	r.last = rep
	l.Advance()
	return nil
}

// Summary is a single styled line with the total and how many
// contributions moved each way.
func (r Report) Summary() string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		MetricLabel.Render("total "), MetricValue.Render(fmt.Sprintf("%.6e", r.Total)),
		MetricLabel.Render("  improved "), ImprovedStyle.Render(fmt.Sprint(r.Count(Improved))),
		MetricLabel.Render("  worsened "), WorsenedStyle.Render(fmt.Sprint(r.Count(Worsened))),
	)
}
