package store

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"

	"leaveplan/internal/model"
)

// Header is the CSV header of record files.
var Header = []string{
	"employee",
	"uid",
	"date",
	"morning_state",
	"morning_detail",
	"afternoon_state",
	"afternoon_detail",
}

const utf8BOM = "\ufeff"

// WriteCSV writes recs with a header. With bom set, a UTF-8 byte order mark
// is written first so spreadsheet tools detect the accents.
func WriteCSV(w io.Writer, recs []model.Record, bom bool) error {
	if bom {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.Employee,
			r.UID,
			r.Date,
			r.MorningState.String(),
			r.MorningDetail,
			r.AfternoonState.String(),
			r.AfternoonDetail,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a file written by WriteCSV. Columns are matched by header
// name, so older files with reordered columns still load.
func ReadCSV(r io.Reader) ([]model.Record, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	head, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: read header")
	}

	col := make(map[string]int, len(head))
	for i, h := range head {
		col[strings.TrimSpace(h)] = i
	}
	for _, h := range Header {
		if _, ok := col[h]; !ok {
			return nil, errors.Wrapf(ErrBadFile, "missing column %q", h)
		}
	}

	var out []model.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "store: line %d", line)
		}
		rec := model.Record{
			Employee:        row[col["employee"]],
			UID:             row[col["uid"]],
			Date:            row[col["date"]],
			MorningDetail:   row[col["morning_detail"]],
			AfternoonDetail: row[col["afternoon_detail"]],
		}
		if rec.MorningState, err = model.ParseState(row[col["morning_state"]]); err != nil {
			return nil, errors.Wrapf(err, "store: line %d", line)
		}
		if rec.AfternoonState, err = model.ParseState(row[col["afternoon_state"]]); err != nil {
			return nil, errors.Wrapf(err, "store: line %d", line)
		}
		out = append(out, rec)
	}
	return out, nil
}
