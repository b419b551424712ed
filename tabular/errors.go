package tabular

import "errors"

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported table format")

	// ErrNoSheets is returned for a workbook without sheets.
	ErrNoSheets = errors.New("workbook has no sheets")

	// ErrSinkClosed is returned when writing to a committed or aborted sink.
	ErrSinkClosed = errors.New("sink already closed")
)
