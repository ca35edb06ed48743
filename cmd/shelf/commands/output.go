package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/shelf/internal/shelfapi"
	"github.com/florianilch/shelf/internal/theme"
)

// printer renders command output with the active theme.
type printer struct {
	w  io.Writer
	st theme.Styles
}

func newPrinter(cmd *cli.Command, st theme.Styles) *printer {
	var w io.Writer = os.Stdout
	if root := cmd.Root(); root != nil && root.Writer != nil {
		w = root.Writer
	}
	return &printer{w: w, st: st}
}

func (p *printer) heading(s string) {
	fmt.Fprintln(p.w, p.st.Title.Render(s))
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintln(p.w, p.st.Text.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) muted(format string, args ...any) {
	fmt.Fprintln(p.w, p.st.Muted.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) success(format string, args ...any) {
	fmt.Fprintln(p.w, p.st.Success.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.st.Warning.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) box(s string) {
	fmt.Fprintln(p.w, p.st.Box.Render(s))
}

// table prints rows under headers. Empty input prints a muted placeholder.
func (p *printer) table(empty string, headers []string, rows [][]string) {
	if len(rows) == 0 {
		p.muted("%s", empty)
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.st.Muted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.st.Title.Padding(0, 1)
			}
			return p.st.Text.Padding(0, 1)
		})
	fmt.Fprintln(p.w, t.Render())
}

func deref[T any](v *T, fallback string, format func(T) string) string {
	if v == nil {
		return fallback
	}
	return format(*v)
}

func year(v *int) string {
	return deref(v, "-", strconv.Itoa)
}

func score(v *float64) string {
	return deref(v, "-", func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) })
}

func userTitleRows(titles []shelfapi.UserTitle) [][]string {
	rows := make([][]string, 0, len(titles))
	for _, ut := range titles {
		rows = append(rows, []string{
			strconv.FormatInt(ut.ID, 10),
			ut.Title.Name,
			string(ut.Title.Category),
			string(ut.Status),
			score(ut.Score),
			year(ut.Title.ReleaseYear),
		})
	}
	return rows
}

var userTitleHeaders = []string{"ID", "Title", "Category", "Status", "Score", "Year"}
