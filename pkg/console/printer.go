// Package console renders session output and reads operator lines.
package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/runner"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

// Status glyphs, so meaning survives without color.
const (
	GlyphSuccess = "✓"
	GlyphError   = "✗"
	GlyphWarn    = "!"
	GlyphInfo    = "›"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("39")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

// MaxCellWidth clips long names and URLs in the scenario table.
const MaxCellWidth = 48

// Printer writes styled status lines.
type Printer struct {
	w     io.Writer
	debug bool

	success lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	info    lipgloss.Style
	hint    lipgloss.Style
	prompt  lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
}

// NewPrinter creates a printer for w. Color is used only when w is a
// color-capable terminal.
func NewPrinter(w io.Writer, debug bool) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		debug:   debug,
		success: r.NewStyle().Foreground(colorGreen),
		err:     r.NewStyle().Foreground(colorRed).Bold(true),
		warn:    r.NewStyle().Foreground(colorYellow),
		info:    r.NewStyle().Foreground(colorBlue),
		hint:    r.NewStyle().Foreground(colorDim),
		prompt:  r.NewStyle().Foreground(colorCyan).Bold(true),
		header:  r.NewStyle().Foreground(colorCyan).Bold(true).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
	}
}

// Notice prints one session notice.
func (p *Printer) Notice(n runner.Notice) {
	switch n.Level {
	case runner.LevelSuccess:
		p.line(p.success, GlyphSuccess, n.Text)
	case runner.LevelError:
		p.line(p.err, GlyphError, n.Text)
	case runner.LevelWarn:
		p.line(p.warn, GlyphWarn, n.Text)
	case runner.LevelHint:
		fmt.Fprintln(p.w, p.hint.Render(n.Text))
	case runner.LevelPrompt:
		fmt.Fprintln(p.w, p.prompt.Render(n.Text))
	default:
		p.line(p.info, GlyphInfo, n.Text)
	}
}

func (p *Printer) line(style lipgloss.Style, glyph, text string) {
	fmt.Fprintln(p.w, style.Render(glyph+" "+text))
}

// Successf, Errorf, Warnf and Infof print one formatted status line.
func (p *Printer) Successf(format string, a ...any) {
	p.line(p.success, GlyphSuccess, fmt.Sprintf(format, a...))
}

func (p *Printer) Errorf(format string, a ...any) {
	p.line(p.err, GlyphError, fmt.Sprintf(format, a...))
}

func (p *Printer) Warnf(format string, a ...any) {
	p.line(p.warn, GlyphWarn, fmt.Sprintf(format, a...))
}

func (p *Printer) Infof(format string, a ...any) {
	p.line(p.info, GlyphInfo, fmt.Sprintf(format, a...))
}

// Debugf prints only in debug mode.
func (p *Printer) Debugf(format string, a ...any) {
	if p.debug {
		fmt.Fprintln(p.w, p.hint.Render("debug: "+fmt.Sprintf(format, a...)))
	}
}

// ScenarioList prints the catalog as a table.
func (p *Printer) ScenarioList(cat *scenario.Catalog) {
	fmt.Fprintln(p.w, p.ScenarioTable(cat))
}

// ScenarioTable renders the catalog with one row per scenario.
func (p *Printer) ScenarioTable(cat *scenario.Catalog) string {
	rows := make([][]string, 0, cat.Len())
	for i, s := range cat.All() {
		sizes := "default"
		if len(s.ScreenSizes) > 0 {
			sizes = strings.Join(s.ScreenSizes, ", ")
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			clip(s.Name),
			clip(s.PrimaryURL),
			sizes,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.hint).
		Headers("#", "NAME", "URL", "SCREEN SIZES").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return p.cell
		}).
		String()
}

func clip(s string) string {
	return runewidth.Truncate(s, MaxCellWidth, "…")
}
