package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"finsync/internal/core"
	"finsync/internal/log"
)

// ProjectSource is the part of the projects model the exporter reads.
type ProjectSource interface {
	Get(ctx context.Context, id string) (core.Project, error)
	PDF(ctx context.Context, id string, kind core.PDFKind) (io.ReadCloser, error)
}

type Exporter struct {
	projects ProjectSource
	sink     Sink
	now      func() time.Time
	logger   *log.Logger
}

func NewExporter(projects ProjectSource, sink Sink, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{projects: projects, sink: sink, now: time.Now, logger: logger.WithComponent(log.ComponentExport)}
}

// ProjectPDF downloads a project report and saves it as
// <project>-<kind>-<yyyymmdd>.pdf.
func (e *Exporter) ProjectPDF(ctx context.Context, projectID string, kind core.PDFKind) (string, error) {
	if !kind.IsValid() {
		return "", fmt.Errorf("unknown report kind %q", kind)
	}
	p, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("load project: %w", err)
	}
	body, err := e.projects.PDF(ctx, projectID, kind)
	if err != nil {
		return "", fmt.Errorf("download %s report: %w", kind, err)
	}
	defer body.Close()

	name := Filename(p, kind, e.now())
	loc, err := e.sink.Save(ctx, name, body)
	if err != nil {
		return "", err
	}
	e.logger.InfoContext(ctx, "Report exported", log.FieldOperation, log.OpExport, "location", loc)
	return loc, nil
}

// Filename names a report after the project, falling back to its id when
// the name has nothing usable.
func Filename(p core.Project, kind core.PDFKind, at time.Time) string {
	base := slug(p.Name)
	if base == "" {
		base = slug(p.ID)
	}
	return fmt.Sprintf("%s-%s-%s.pdf", base, kind, at.Format("20060102"))
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
