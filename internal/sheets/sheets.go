// Package sheets checks a T12 or rent roll locally before it is uploaded.
package sheets

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"deal-analyzer-client/internal/common/errors"
)

// Accepted lists the upload extensions the backend parses.
var Accepted = []string{".pdf", ".xlsx", ".csv"}

// Summary describes a staged document. Rows and Header are empty for PDFs.
type Summary struct {
	Format string
	Sheet  string
	Rows   int
	Header []string
}

func (s Summary) String() string {
	if s.Format == "pdf" {
		return "pdf"
	}
	out := fmt.Sprintf("%s, %d rows", s.Format, s.Rows)
	if s.Sheet != "" {
		out = fmt.Sprintf("%s sheet %q, %d rows", s.Format, s.Sheet, s.Rows)
	}
	if len(s.Header) > 0 {
		out += ": " + strings.Join(s.Header, ", ")
	}
	return out
}

// Inspect validates the extension of fileName and, for spreadsheets, that the
// content can be read.
func Inspect(field, fileName string, content []byte) (Summary, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".pdf":
		return Summary{Format: "pdf"}, nil
	case ".xlsx":
		return inspectWorkbook(field, content)
	case ".csv":
		return inspectCSV(field, content)
	default:
		return Summary{}, errors.NewValidationError(map[string]string{
			field: fmt.Sprintf("Unsupported file type %q, use %s", ext, strings.Join(Accepted, ", ")),
		})
	}
}

func inspectWorkbook(field string, content []byte) (Summary, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return Summary{}, unreadable(field, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Summary{}, unreadable(field, fmt.Errorf("workbook has no sheets"))
	}
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Summary{}, unreadable(field, err)
	}
	return summarize("xlsx", sheet, rows), nil
}

func inspectCSV(field string, content []byte) (Summary, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Summary{}, unreadable(field, err)
		}
		rows = append(rows, rec)
	}
	return summarize("csv", "", rows), nil
}

func summarize(format, sheet string, rows [][]string) Summary {
	s := Summary{Format: format, Sheet: sheet}
	for _, row := range rows {
		if !blank(row) {
			s.Rows++
			if s.Header == nil {
				s.Header = row
			}
		}
	}
	return s
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func unreadable(field string, err error) *errors.StandardError {
	stdErr := errors.NewValidationError(map[string]string{field: "File is not a readable spreadsheet"})
	stdErr.Details = err.Error()
	return stdErr
}
