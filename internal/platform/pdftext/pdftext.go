// Package pdftext pulls plain text out of PDF documents, one string per page.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrUnreadable = errors.New("document is not a readable PDF")

// PageExtractor returns the text of each page of a document in order.
type PageExtractor interface {
	Pages(ctx context.Context, content []byte) ([]string, error)
}

// Extractor implements PageExtractor with github.com/ledongthuc/pdf.
// Pages without text yield an empty string so page positions are preserved.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

func (Extractor) Pages(ctx context.Context, content []byte) (pages []string, err error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrUnreadable)
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := reader.Page(i)
		if p.V.IsNull() || p.V.Key("Contents").IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageText(p.Content().Text))
	}
	return pages, nil
}

// rowTolerance is how far apart, in points, two glyph baselines may be and
// still belong to the same line.
const rowTolerance = 1.0

type textLine struct {
	y    float64
	b    strings.Builder
	last pdf.Text
}

// lineAt returns the line whose baseline is within rowTolerance of y.
func lineAt(lines []*textLine, y float64) *textLine {
	for _, l := range lines {
		if math.Abs(l.y-y) <= rowTolerance {
			return l
		}
	}
	return nil
}

// pageText rebuilds the lines of a page from positioned glyphs. Glyphs sharing
// a baseline form one line in content-stream order, and lines are ordered top
// to bottom. A visible gap between glyphs of known width becomes a space.
func pageText(glyphs []pdf.Text) string {
	var lines []*textLine
	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" {
			continue
		}
		cur := lineAt(lines, g.Y)
		if cur == nil {
			cur = &textLine{y: g.Y}
			lines = append(lines, cur)
		} else if gap := g.X - (cur.last.X + cur.last.W); cur.last.W > 0 && gap > cur.last.FontSize*0.25 &&
			!strings.HasSuffix(cur.b.String(), " ") && g.S != " " {
			cur.b.WriteByte(' ')
		}
		cur.b.WriteString(g.S)
		cur.last = g
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.TrimRight(l.b.String(), " "))
	}
	return strings.Join(out, "\n")
}

// Static serves fixed pages; used by the CLI for plain-text input and by tests.
type Static []string

func (s Static) Pages(context.Context, []byte) ([]string, error) {
	return []string(s), nil
}
