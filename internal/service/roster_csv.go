package service

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stemsi/roster-backend/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvRecord is one physical line of an uploaded roster file.
type csvRecord struct {
	Line   int
	Fields []string
	Err    error
}

func (r csvRecord) raw() string {
	return strings.Join(r.Fields, ",")
}

// readRosterCSV reads every record from r. Parse errors become records with Err
// set so later lines are still processed. Records with fewer than three fields
// are dropped and counted in skipped.
func readRosterCSV(r io.Reader, skipHeader bool) (records []csvRecord, skipped int, err error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(utf8BOM)); string(head) == string(utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	first := true
	for {
		fields, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			var pe *csv.ParseError
			if !errors.As(readErr, &pe) {
				return nil, 0, fmt.Errorf("read csv: %w", readErr)
			}
			records = append(records, csvRecord{Line: pe.StartLine, Err: pe.Err})
			first = false
			continue
		}

		line, _ := cr.FieldPos(0)
		if first {
			first = false
			if skipHeader {
				continue
			}
		}
		if len(fields) < 3 {
			skipped++
			continue
		}
		records = append(records, csvRecord{Line: line, Fields: fields})
	}
	return records, skipped, nil
}

// rosterRow is a record reduced to the three columns the importer reads.
type rosterRow struct {
	ID        int
	Name      string
	MajorName string
}

// parseRosterRow validates the id and name columns of a well-formed record.
func parseRosterRow(rec csvRecord) (rosterRow, *model.RejectedRow) {
	reject := func(field, msg string) (rosterRow, *model.RejectedRow) {
		return rosterRow{}, &model.RejectedRow{
			Line:    rec.Line,
			Raw:     rec.raw(),
			Reason:  model.RejectValidation,
			Field:   field,
			Message: msg,
		}
	}

	if rec.Err != nil {
		return reject("", fmt.Sprintf("malformed csv: %v", rec.Err))
	}

	id, err := strconv.Atoi(strings.TrimSpace(rec.Fields[0]))
	if err != nil || id <= 0 || id > maxID {
		return reject("student_id", idRangeMessage)
	}
	name, err := cleanName("student_name", rec.Fields[1])
	if err != nil {
		var ve *ValidationError
		errors.As(err, &ve)
		return reject(ve.Field, ve.Message)
	}
	return rosterRow{ID: id, Name: name, MajorName: strings.TrimSpace(rec.Fields[2])}, nil
}

// writeRosterCSV writes the export header and one line per student.
func writeRosterCSV(w io.Writer, students []model.Student) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"student_id", "student_name", "major_name", "notes"}); err != nil {
		return err
	}
	for _, st := range students {
		if err := cw.Write([]string{strconv.Itoa(st.ID), st.Name, st.MajorName, st.Notes}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
