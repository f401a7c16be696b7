package panel

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"regexp"
	"time"

	"github.com/cespare/xxhash/v2"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const (
	// ExportFileName is the name offered for the spreadsheet download.
	ExportFileName = "django_query_profiled_data.xls"
	// ExportContentType is the legacy spreadsheet MIME type.
	ExportContentType = "application/vnd.ms-excel"
)

var (
	anchorTagRe = regexp.MustCompile(`(?i)<a(\s[^>]*)?>|</a\s*>`)
	imageTagRe  = regexp.MustCompile(`(?i)<img(\s[^>]*)?/?>`)
	inputTagRe  = regexp.MustCompile(`(?i)<input(\s[^>]*)?/?>|</input\s*>`)
)

type view struct {
	Columns        [ColumnCount + 1]string
	Rows           []Row
	Prefix         string
	Export         bool
	RefreshSeconds int
}

// RenderOptions control the interactive page.
type RenderOptions struct {
	// Prefix is the URL path the panel endpoints are mounted under.
	Prefix string
	// Refresh reloads the page periodically when positive.
	Refresh time.Duration
}

// Render writes the full panel page for the current rows.
func (t *Table) Render(w io.Writer, opts RenderOptions) error {
	v := view{
		Columns:        Columns,
		Rows:           t.Rows(),
		Prefix:         opts.Prefix,
		RefreshSeconds: int(opts.Refresh / time.Second),
	}
	if err := templates.ExecuteTemplate(w, "page", v); err != nil {
		return fmt.Errorf("render panel: %w", err)
	}
	return nil
}

// Export is a point-in-time spreadsheet snapshot of the table.
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

// ETag is a strong validator for Body.
func (e Export) ETag() string {
	return fmt.Sprintf(`"%x"`, xxhash.Sum64(e.Body))
}

// Export serializes the full table markup with anchors, images and input
// controls removed, so every cell holds plain text.
func (t *Table) Export() (Export, error) {
	var buf bytes.Buffer
	v := view{
		Columns: Columns,
		Rows:    t.Rows(),
		Export:  true,
	}
	if err := templates.ExecuteTemplate(&buf, "table", v); err != nil {
		return Export{}, fmt.Errorf("render export: %w", err)
	}

	return Export{
		FileName:    ExportFileName,
		ContentType: ExportContentType,
		Body:        StripControls(buf.Bytes()),
	}, nil
}

// StripControls removes anchor, image and input tags from markup. The text
// inside anchors is kept.
func StripControls(markup []byte) []byte {
	markup = anchorTagRe.ReplaceAll(markup, nil)
	markup = imageTagRe.ReplaceAll(markup, nil)
	markup = inputTagRe.ReplaceAll(markup, nil)
	return markup
}
