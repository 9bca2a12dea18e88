package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Document writes markdown. The first write error is kept and returned by Err
// and Close; later writes become no-ops.
type Document struct {
	w      io.Writer
	closer io.Closer
	err    error
}

// NewDocument writes markdown to w.
func NewDocument(w io.Writer) *Document {
	return &Document{w: w}
}

// OpenDocument creates (or, with appendTo, extends) the markdown file at path.
// Everything written is also copied to mirrors.
func OpenDocument(path string, appendTo bool, mirrors ...io.Writer) (*Document, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendTo {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %w", path, err)
	}
	if len(mirrors) == 0 {
		return &Document{w: f, closer: f}, nil
	}
	return &Document{w: io.MultiWriter(append([]io.Writer{f}, mirrors...)...), closer: f}, nil
}

func (d *Document) write(lines ...string) {
	if d.err != nil {
		return
	}
	_, d.err = io.WriteString(d.w, strings.Join(lines, "\n")+"\n")
}

// NewLine writes count empty lines.
func (d *Document) NewLine(count int) {
	if d.err != nil || count <= 0 {
		return
	}
	_, d.err = io.WriteString(d.w, strings.Repeat("\n", count))
}

// Header writes a level-sized heading followed by a blank line.
func (d *Document) Header(level int, title string) {
	if level < 1 {
		level = 1
	}
	d.write(strings.Repeat("#", level) + " " + title)
	d.NewLine(1)
}

// Table writes t as a markdown table. The separator under each header cell is
// as wide as the cell's display width.
func (d *Document) Table(t *Table) {
	if t == nil {
		return
	}
	breaks := make([]string, len(t.Header))
	for i, h := range t.Header {
		breaks[i] = strings.Repeat("-", max(runewidth.StringWidth(h), 1))
	}
	d.write(tableLine(t.Header), tableLine(breaks))
	for _, row := range t.Rows {
		d.write(tableLine(row))
	}
}

func tableLine(cols []string) string {
	return "| " + strings.Join(cols, " | ") + " |"
}

// Details wraps t in a collapsible section titled summary.
func (d *Document) Details(summary string, t *Table) {
	d.write("<details>", fmt.Sprintf("  <summary>%s</summary>", summary))
	d.NewLine(1)
	d.Table(t)
	d.write("</details>")
	d.NewLine(1)
}

// Err returns the first write error.
func (d *Document) Err() error {
	return d.err
}

// Close closes the underlying file, if any, and reports the first error seen.
func (d *Document) Close() error {
	if d.closer != nil {
		if err := d.closer.Close(); err != nil && d.err == nil {
			d.err = err
		}
		d.closer = nil
	}
	return d.err
}
