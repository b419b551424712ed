// Package tabular reads the input table and writes the output tables.
//
// Input is exactly one CSV (with a header row) or XLSX file (first sheet).
// Rows are exposed as an iter.Seq2 of core.SourceRow, reopening the file on
// every iteration.
//
// Output sinks write to a temporary file next to the destination and only
// rename it into place on Commit, so an aborted run never leaves a partial
// table behind.
package tabular
