// Package render writes the static job board page.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pilotjobs/internal/model"
)

// IndexFile is the page written next to jobs.json.
const IndexFile = "index.html"

//go:embed templates/index.html.tmpl
var indexTemplate string

// Arizona does not observe daylight saving time.
var arizona = time.FixedZone("MST", -7*60*60)

var page = template.Must(template.New("index").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(indexTemplate))

type sourceRow struct {
	Name string
	model.SourceResult
}

type pageData struct {
	Jobs      []model.Job
	Payload   []model.Job // Jobs embedded as JSON, links limited to http(s)
	Tags      []string
	Sources   []string
	Results   []sourceRow
	Updated   string
	NewCount  int
	Total     int
	HasResult bool
}

// Render writes the page for doc to w.
func Render(w io.Writer, doc *model.Document) error {
	return page.Execute(w, buildData(doc))
}

// WriteFile renders doc into path, replacing any existing page.
func WriteFile(path string, doc *model.Document) error {
	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func buildData(doc *model.Document) pageData {
	tagSet := map[string]struct{}{}
	sourceSet := map[string]struct{}{}
	newCount := 0
	payload := make([]model.Job, 0, len(doc.Today))
	for _, j := range doc.Today {
		p := j
		p.Link = webLink(j.Link)
		payload = append(payload, p)

		for _, t := range j.Tags {
			tagSet[t] = struct{}{}
		}
		for _, s := range append([]string{j.Source}, j.Sources...) {
			if s != "" {
				sourceSet[s] = struct{}{}
			}
		}
		if j.New {
			newCount++
		}
	}

	rows := make([]sourceRow, 0, len(doc.Results))
	for name, r := range doc.Results {
		rows = append(rows, sourceRow{Name: name, SourceResult: r})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	updated := "never"
	if !doc.UpdatedAt.IsZero() {
		updated = doc.UpdatedAt.In(arizona).Format("Jan 2, 2006 3:04 PM") + " (Arizona)"
	}

	return pageData{
		Jobs:      doc.Today,
		Payload:   payload,
		Tags:      sortedKeys(tagSet),
		Sources:   sortedKeys(sourceSet),
		Results:   rows,
		Updated:   updated,
		NewCount:  newCount,
		Total:     len(doc.Today),
		HasResult: len(rows) > 0,
	}
}

// webLink returns link when it is an absolute http or https URL, else "".
func webLink(link string) string {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return link
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
