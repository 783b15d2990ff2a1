package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/jobs-ingest/constants"
)

// UnsupportedTypeError is returned for file extensions outside the allowed set.
type UnsupportedTypeError struct {
	Ext string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Ext)
}

// LoadFile reads path into a Table, dispatching on the file extension
// (case-insensitive): .csv as comma-separated values with a header row,
// .xlsx/.xls as the first worksheet of a workbook. The source file is only
// read, never modified.
func LoadFile(path string) (*Table, error) {
	ext := filepath.Ext(path)
	switch constants.NormalizeExt(ext) {
	case constants.ExtCSV:
		return loadCSV(path)
	case constants.ExtXLSX, constants.ExtXLS:
		return loadWorkbook(path)
	default:
		return nil, &UnsupportedTypeError{Ext: ext}
	}
}

func loadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	// Windows tooling likes to prepend a UTF-8 BOM
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	t := &Table{Columns: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func loadWorkbook(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	t := &Table{Columns: rows[0]}
	for _, r := range rows[1:] {
		// GetRows drops trailing empty cells; keep row width stable
		if len(r) < len(t.Columns) {
			padded := make([]string, len(t.Columns))
			copy(padded, r)
			r = padded
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}
