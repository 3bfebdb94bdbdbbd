package grid

import (
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// ParseFile reads a saved month snapshot.
func ParseFile(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "grid: open snapshot")
	}
	defer f.Close()

	page, err := ParseHTML(f)
	if err != nil {
		return nil, errors.Wrapf(err, "grid: parse %s", path)
	}
	return page, nil
}

// ParseHTML extracts the planning from an HTML document. Geometry comes from
// inline styles only; snapshots carry no rendered boxes.
func ParseHTML(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// FromDocument is ParseHTML on an already parsed document.
func FromDocument(doc *goquery.Document) (*Page, error) {
	page := &Page{
		MonthLabel: strings.TrimSpace(doc.Find(SelMonthLabel).First().Text()),
	}

	rows := doc.Find(SelRow)
	if rows.Length() == 0 && page.MonthLabel == "" {
		return nil, ErrNoCalendar
	}

	rows.Each(func(_ int, s *goquery.Selection) {
		page.Rows = append(page.Rows, parseRow(s))
	})

	doc.Find(SelMarker).Each(func(_ int, s *goquery.Selection) {
		if class, ok := s.Attr("class"); ok {
			page.Markers = append(page.Markers, class)
		}
	})

	return page, nil
}

func parseRow(s *goquery.Selection) Row {
	row := Row{
		Name: strings.TrimSpace(s.Find(SelNameCell).First().Text()),
	}

	if id, ok := s.Attr(AttrCorpID); ok {
		row.CorpID = id
	} else if id, ok := s.Find(SelCorpID).First().Attr(AttrCorpID); ok {
		row.CorpID = id
	}

	s.Find(SelDayCell).Each(func(_ int, cell *goquery.Selection) {
		style, _ := cell.Attr("style")
		w, _ := StyleWidth(style)
		row.CellWidths = append(row.CellWidths, w)
	})

	line := s.Find(SelLine).First()
	if style, ok := line.Attr("style"); ok {
		row.LineWidth, _ = StyleWidth(style)
	}

	line.Find(SelEvent).Each(func(_ int, ev *goquery.Selection) {
		class, _ := ev.Attr("class")
		title, _ := ev.Attr("title")
		style, _ := ev.Attr("style")
		row.Elements = append(row.Elements, Element{Class: class, Title: title, Style: style})
	})

	return row
}
