package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/de-tools/site-report/pkg/services/titles"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
)

const timeLayout = "2006-01-02 15:04"

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatYAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported output format %q, use text or yaml", s)
}

type TableConfig struct {
	IDWidth         int
	NameWidth       int
	ComplaintsWidth int
	ModifiedWidth   int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		IDWidth:         16,
		NameWidth:       40,
		ComplaintsWidth: 10,
		ModifiedWidth:   16,
	}
}

// Reporter prints reports to the console.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

type summaryView struct {
	ID           string    `yaml:"id"`
	Name         string    `yaml:"name"`
	Complaints   int       `yaml:"complaints"`
	LastModified time.Time `yaml:"lastModified"`
}

type itemView struct {
	ID          string `yaml:"id"`
	Kind        string `yaml:"kind"`
	Text        string `yaml:"text,omitempty"`
	ContentType string `yaml:"contentType,omitempty"`
	Size        int    `yaml:"size,omitempty"`
}

type complaintView struct {
	ID    string     `yaml:"id"`
	Type  string     `yaml:"type"`
	Title string     `yaml:"title"`
	Items []itemView `yaml:"items"`
}

type reportView struct {
	ID           string          `yaml:"id"`
	Name         string          `yaml:"name"`
	CreatedAt    time.Time       `yaml:"createdAt"`
	LastModified time.Time       `yaml:"lastModified"`
	Complaints   []complaintView `yaml:"complaints"`
}

func newReportView(r *domain.Report) reportView {
	view := reportView{
		ID:           r.ID,
		Name:         r.Name,
		CreatedAt:    r.CreatedAt,
		LastModified: r.LastModified,
		Complaints:   make([]complaintView, 0, len(r.Complaints)),
	}
	for i, c := range r.Complaints {
		title := c.Title
		if title == "" {
			title = titles.Fallback(c.Type, i+1)
		}
		cv := complaintView{ID: c.ID, Type: string(c.Type), Title: title, Items: make([]itemView, 0, len(c.Items))}
		for _, it := range c.Items {
			iv := itemView{ID: it.ID, Kind: string(it.Kind), Text: it.Text}
			if p := it.Payload(); p != nil {
				iv.ContentType = p.ContentType
				iv.Size = len(p.Data)
			}
			cv.Items = append(cv.Items, iv)
		}
		view.Complaints = append(view.Complaints, cv)
	}
	return view
}

// Summaries prints one row per report.
func (c *Reporter) Summaries(reports []*domain.Report, format Format) error {
	views := make([]summaryView, 0, len(reports))
	for _, r := range reports {
		views = append(views, summaryView{
			ID:           r.ID,
			Name:         r.Name,
			Complaints:   len(r.Complaints),
			LastModified: r.LastModified,
		})
	}
	if format == FormatYAML {
		return c.yaml(views)
	}

	funcMap := template.FuncMap{
		"formatRow": func(id, name string, complaints any, modified string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*v | %-*s |",
				c.config.IDWidth, truncate(id, c.config.IDWidth),
				c.config.NameWidth, truncate(name, c.config.NameWidth),
				c.config.ComplaintsWidth, complaints,
				c.config.ModifiedWidth, modified)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.IDWidth+2),
				strings.Repeat("-", c.config.NameWidth+2),
				strings.Repeat("-", c.config.ComplaintsWidth+2),
				strings.Repeat("-", c.config.ModifiedWidth+2))
		},
		"format": func(t time.Time) string { return t.Local().Format(timeLayout) },
	}

	tmpl := `{{separator}}
{{formatRow "ID" "Name" "Complaints" "Last modified"}}
{{separator}}
{{range .}}{{formatRow .ID .Name .Complaints (format .LastModified)}}
{{end}}{{separator}}
`
	t, err := template.New("summaries").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, views)
}

// Report prints a single report with its complaints and items.
func (c *Reporter) Report(r *domain.Report, format Format) error {
	view := newReportView(r)
	if format == FormatYAML {
		return c.yaml(view)
	}

	funcMap := template.FuncMap{
		"format": func(t time.Time) string { return t.Local().Format(timeLayout) },
		"inc":    func(i int) int { return i + 1 },
	}

	tmpl := `
{{.Name}}
Created at: {{format .CreatedAt}}
Last modified: {{format .LastModified}}
{{range $i, $c := .Complaints}}
{{inc $i}}. {{$c.Title}} ({{$c.Type}}, {{$c.ID}})
{{range $c.Items}}   - [{{.Kind}}]{{if .ContentType}} {{.ContentType}} {{.Size}} bytes{{end}}{{if .Text}} {{.Text}}{{end}}
{{end}}{{end}}`

	t, err := template.New("report").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, view)
}

func (c *Reporter) yaml(v any) error {
	enc := yaml.NewEncoder(c.writer)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
