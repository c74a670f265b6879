// Package sink holds the presentation adapters a dashboard session pushes
// its updates to.
package sink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
	"PipelineDash/internal/timefmt"
)

// Terminal renders snapshots as tables and streams console lines.
type Terminal struct {
	mu        sync.Mutex
	out       io.Writer
	useColors bool
	every     int
}

var _ ports.Sink = (*Terminal)(nil)

// ResolveColors reports whether colored output should be used.
func ResolveColors(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return !color.NoColor
}

// NewTerminal writes to out. The countdown is echoed every countdownEvery
// ticks; zero silences it.
func NewTerminal(out io.Writer, useColors bool, countdownEvery int) *Terminal {
	if out == nil {
		out = os.Stdout
	}
	return &Terminal{out: out, useColors: useColors, every: countdownEvery}
}

func (t *Terminal) PublishSnapshot(s domain.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	RenderSnapshot(t.out, s, t.useColors)
}

func (t *Terminal) PublishCountdown(remaining int) {
	if t.every <= 0 || remaining <= 0 || remaining%t.every != 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faint(fmt.Sprintf("next refresh in %ds", remaining))
}

func (t *Terminal) PublishLog(e domain.ActivityLogEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	line := fmt.Sprintf("[%s] %s", timefmt.Clock(e.Timestamp), e.Message)
	if !t.useColors {
		fmt.Fprintln(t.out, line)
		return
	}
	severityColor(e.Severity).Fprintln(t.out, line)
}

func (t *Terminal) PublishCommandState(name string, state domain.CommandState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s %s %s\n", stateDot(state, t.useColors), name, state)
}

func (t *Terminal) faint(text string) {
	if t.useColors {
		color.New(color.Faint).Fprintln(t.out, text)
		return
	}
	fmt.Fprintln(t.out, text)
}

// RenderSnapshot writes the full dashboard as a sequence of tables.
func RenderSnapshot(w io.Writer, s domain.Snapshot, useColors bool) {
	section(w, "Overview", useColors)
	table := newTable(w)
	table.Header([]string{"Metric", "Value"})
	table.Bulk([][]string{
		{"Total cards", timefmt.Number(s.Overview.TotalCards)},
		{"Active sources", timefmt.Number(s.Overview.ActiveSources)},
		{"Pending processing", timefmt.Number(s.Overview.PendingProcessing)},
		{"Missing images", timefmt.Number(s.Overview.MissingImages)},
		{"Total likes", timefmt.Number(s.Overview.TotalLikes)},
		{"Total dislikes", timefmt.Number(s.Overview.TotalDislikes)},
		{"Avg quality", s.Overview.AvgQuality},
		{"Cards with links", timefmt.Number(s.Overview.CardsWithLinks)},
	})
	table.Render()

	section(w, "Pipeline", useColors)
	table = newTable(w)
	table.Header([]string{"Unprocessed", "Created", "Rejected", "Errors", "Progress"})
	table.Bulk([][]string{{
		timefmt.Number(s.Pipeline.Unprocessed),
		timefmt.Number(s.Pipeline.Created),
		timefmt.Number(s.Pipeline.Rejected),
		timefmt.Number(s.Pipeline.Errors),
		s.Pipeline.ProgressText(),
	}})
	table.Render()

	section(w, "Sources", useColors)
	table = newTable(w)
	table.Header([]string{"", "Source", "State", "Last run", "Next due", "Cards", "Tier"})
	rows := make([][]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		rows = append(rows, []string{
			healthDot(src.State, useColors),
			src.DisplayName,
			string(src.State),
			src.LastRun,
			src.NextDue,
			timefmt.Number(src.CardCount),
			fmt.Sprintf("%d/10", src.QualityTier),
		})
	}
	table.Bulk(rows)
	table.Render()

	section(w, "Functions", useColors)
	table = newTable(w)
	table.Header([]string{"Function", "Last run"})
	rows = make([][]string, 0, len(s.Functions))
	for _, fn := range s.Functions {
		rows = append(rows, []string{fn.Name, fn.LastRun})
	}
	table.Bulk(rows)
	table.Render()

	section(w, "Timeline", useColors)
	table = newTable(w)
	table.Header([]string{"Stage", "Most recent"})
	table.Bulk([][]string{
		{"Scraping", s.Timeline.LastScrape},
		{"Raw content", s.Timeline.LastRawContent},
		{"Processing", s.Timeline.LastProcessed},
		{"Card created", s.Timeline.LastCardCreated},
		{"Cards last 24h", timefmt.Number(s.Activity.Last24Hours)},
		{"Cards last 7d", timefmt.Number(s.Activity.Last7Days)},
		{"Most recent card", s.Activity.MostRecent},
	})
	table.Render()

	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "\nLast updated %s\n", timefmt.Clock(s.UpdatedAt))
	}
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
}

func section(w io.Writer, title string, useColors bool) {
	if useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(w, "\n%s\n", title)
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
}

func severityColor(s domain.Severity) *color.Color {
	switch s {
	case domain.SeveritySuccess:
		return color.New(color.FgGreen)
	case domain.SeverityWarning:
		return color.New(color.FgYellow)
	case domain.SeverityError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgCyan)
	}
}

func healthDot(state domain.HealthState, useColors bool) string {
	if !useColors {
		switch state {
		case domain.HealthHealthy:
			return "+"
		case domain.HealthError:
			return "x"
		case domain.HealthOverdue:
			return "!"
		default:
			return "-"
		}
	}
	switch state {
	case domain.HealthHealthy:
		return color.GreenString("●")
	case domain.HealthError:
		return color.RedString("●")
	case domain.HealthOverdue:
		return color.YellowString("●")
	default:
		return color.WhiteString("○")
	}
}

func stateDot(state domain.CommandState, useColors bool) string {
	if !useColors {
		return "*"
	}
	switch state {
	case domain.CommandRunning:
		return color.CyanString("◐")
	case domain.CommandSuccess:
		return color.GreenString("✓")
	case domain.CommandFailed:
		return color.RedString("✗")
	default:
		return color.WhiteString("○")
	}
}
