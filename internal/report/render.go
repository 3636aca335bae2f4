package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/PurpleBooth/git-moves-together/internal/output"
	"github.com/PurpleBooth/git-moves-together/pkg/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed template.html
var templateFS embed.FS

// EmptyMessage is printed instead of a table when nothing is coupled.
const EmptyMessage = "0 files move together"

// Headers are the columns of the coupling table.
var Headers = []string{"File A", "File B", "Together %", "Together", "Commits"}

var _ output.Renderable = (*Coupling)(nil)

// Coupling renders a coupling report in every output format.
type Coupling struct {
	Report *models.CouplingReport
	// Top limits the rows shown; zero shows all of them.
	Top int
	// Title is printed above the table when set.
	Title string
}

// NewCoupling wraps r for rendering.
func NewCoupling(r *models.CouplingReport, top int) *Coupling {
	return &Coupling{Report: r, Top: top}
}

// Percent formats a score as a percentage with two decimals.
func Percent(score float64) string {
	return fmt.Sprintf("%.2f%%", score*100)
}

func (c *Coupling) rows(colored bool) [][]string {
	shown := c.Report.Top(c.Top)
	rows := make([][]string, len(shown))
	for i, s := range shown {
		pct := Percent(s.Score)
		if colored {
			pct = output.ScoreColor(s.Score, pct)
		}
		rows[i] = []string{
			s.Key.A.String(),
			s.Key.B.String(),
			pct,
			fmt.Sprint(s.Together),
			fmt.Sprint(s.Total),
		}
	}
	return rows
}

// summaryLine describes the whole report, including rows cut by Top.
func (c *Coupling) summaryLine() string {
	p := message.NewPrinter(language.English)
	s := c.Report.Summary

	var b strings.Builder
	p.Fprintf(&b, "%d pairs, %d at or above %.0f%%, from %d changes to %d files",
		s.TotalPairs, s.StrongPairs, models.StrongCouplingThreshold*100, s.UnitsAnalyzed, s.FilesAnalyzed)
	if shown := len(c.Report.Top(c.Top)); shown < s.TotalPairs {
		p.Fprintf(&b, " (showing top %d)", shown)
	}
	return b.String()
}

func (c *Coupling) RenderText(w io.Writer, colored bool) error {
	if c.Report.Empty() {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}
	table := output.NewTable(c.Title, Headers, c.rows(colored), nil, nil)
	if err := table.RenderText(w, colored); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, c.summaryLine())
	return err
}

func (c *Coupling) RenderMarkdown(w io.Writer) error {
	if c.Report.Empty() {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}
	table := output.NewTable(c.Title, Headers, c.rows(false), nil, nil)
	if err := table.RenderMarkdown(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "_%s_\n", c.summaryLine())
	return err
}

func (c *Coupling) RenderData() any {
	return NewData(c.Report, c.Top)
}

// htmlData is what template.html is executed with.
type htmlData struct {
	Title   string
	Data    Data
	Summary string
}

// RenderHTML writes a standalone HTML page.
func (c *Coupling) RenderHTML(w io.Writer) error {
	tmpl, err := parseTemplate()
	if err != nil {
		return err
	}
	title := c.Title
	if title == "" {
		title = "Files that move together"
	}
	return tmpl.Execute(w, htmlData{
		Title:   title,
		Data:    NewData(c.Report, c.Top),
		Summary: c.summaryLine(),
	})
}

func parseTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"percent": Percent,
		"scoreClass": func(score float64) string {
			switch {
			case score >= 0.7:
				return "high"
			case score >= 0.4:
				return "medium"
			default:
				return "low"
			}
		},
		"join": strings.Join,
	}

	tmplContent, err := templateFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}
	return template.New("report").Funcs(funcMap).Parse(string(tmplContent))
}
