// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/poiesic/rowembed/core"
	"github.com/xuri/excelize/v2"
)

// Format identifies an input file type.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

const utf8BOM = "\ufeff"

// FormatOf returns the format implied by the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV, nil
	case ".xlsx":
		return XLSX, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// Table is an input table whose header has been read.
type Table struct {
	Path    string
	Format  Format
	Columns []string
	sheet   string
}

// OpenTable reads the header of the table at path.
func OpenTable(path string) (*Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	t := &Table{Path: path, Format: format}
	switch format {
	case CSV:
		err = t.readCSVHeader()
	case XLSX:
		err = t.readXLSXHeader()
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the header before any row is processed.
func (t *Table) Validate(column string) error {
	return core.ValidateHeader(t.Columns, column)
}

// Name returns the file name without its extension.
func (t *Table) Name() string {
	base := filepath.Base(t.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Rows yields every data row in file order. Each iteration reopens the file.
// Read failures are yielded as errors and end the sequence.
func (t *Table) Rows() iter.Seq2[core.SourceRow, error] {
	if t.Format == XLSX {
		return t.xlsxRows
	}
	return t.csvRows
}

// CountRows returns the number of data rows, stopping at the first error.
func (t *Table) CountRows() (int, error) {
	n := 0
	for _, err := range t.Rows() {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	// Row lengths are checked against the header by core.ValidateRow
	reader.FieldsPerRecord = -1
	return reader
}

func (t *Table) readCSVHeader() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	header, err := newCSVReader(f).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &core.DataShapeError{Row: -1, Err: errors.New("empty table")}
		}
		return &core.DataShapeError{Row: -1, Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	t.Columns = header
	return nil
}

func (t *Table) csvRows(yield func(core.SourceRow, error) bool) {
	f, err := os.Open(t.Path)
	if err != nil {
		yield(core.SourceRow{}, err)
		return
	}
	defer f.Close()

	reader := newCSVReader(f)
	if _, err := reader.Read(); err != nil {
		yield(core.SourceRow{}, &core.DataShapeError{Row: -1, Err: err})
		return
	}

	for index := 0; ; index++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(core.SourceRow{}, &core.DataShapeError{Row: index, Err: err})
			return
		}
		row := core.SourceRow{Index: index, Columns: t.Columns, Values: record}
		if !yield(row, nil) {
			return
		}
	}
}

func (t *Table) readXLSXHeader() error {
	f, err := excelize.OpenFile(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ErrNoSheets
	}
	t.sheet = sheets[0]

	rows, err := f.Rows(t.sheet)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Error(); err != nil {
			return &core.DataShapeError{Row: -1, Err: err}
		}
		return &core.DataShapeError{Row: -1, Err: errors.New("empty table")}
	}
	header, err := rows.Columns()
	if err != nil {
		return &core.DataShapeError{Row: -1, Err: err}
	}
	t.Columns = header
	return nil
}

func (t *Table) xlsxRows(yield func(core.SourceRow, error) bool) {
	f, err := excelize.OpenFile(t.Path)
	if err != nil {
		yield(core.SourceRow{}, err)
		return
	}
	defer f.Close()

	rows, err := f.Rows(t.sheet)
	if err != nil {
		yield(core.SourceRow{}, err)
		return
	}
	defer rows.Close()

	// Header
	if !rows.Next() {
		return
	}

	for index := 0; rows.Next(); index++ {
		cells, err := rows.Columns()
		if err != nil {
			yield(core.SourceRow{}, &core.DataShapeError{Row: index, Err: err})
			return
		}
		// Trailing empty cells are not stored in the sheet
		if len(cells) < len(t.Columns) {
			cells = append(cells, make([]string, len(t.Columns)-len(cells))...)
		}
		row := core.SourceRow{Index: index, Columns: t.Columns, Values: slices.Clip(cells)}
		if !yield(row, nil) {
			return
		}
	}
	if err := rows.Error(); err != nil {
		yield(core.SourceRow{}, err)
	}
}
