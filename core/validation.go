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

package core

import (
	"errors"
	"fmt"
	"slices"
)

// ValidateRow checks that a row is well formed and carries column.
//
// Validation rules:
//   - Columns and Values must have the same length (DataShapeError)
//   - column must be one of the row's columns (ConfigurationError)
//
// Empty values are valid; they degrade to the empty embedding downstream.
func ValidateRow(row SourceRow, column string) error {
	if len(row.Columns) != len(row.Values) {
		return &DataShapeError{
			Row: row.Index,
			Err: fmt.Errorf("expected %d fields, got %d", len(row.Columns), len(row.Values)),
		}
	}
	if !slices.Contains(row.Columns, column) {
		return &ConfigurationError{
			Field:   "embed_column",
			Message: fmt.Sprintf("column %q absent from row %d", column, row.Index),
			Err:     ErrMissingColumn,
		}
	}
	return nil
}

// ValidateHeader checks a table header before any row is read.
// Duplicate column names are rejected because rows are looked up by name.
func ValidateHeader(columns []string, column string) error {
	if len(columns) == 0 {
		return &DataShapeError{Row: -1, Err: errors.New("table has no header")}
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return &DataShapeError{Row: -1, Err: fmt.Errorf("duplicate column %q", c)}
		}
		seen[c] = struct{}{}
	}
	if _, ok := seen[column]; !ok {
		return &ConfigurationError{
			Field:   "embed_column",
			Message: fmt.Sprintf("column %q not found in input header %v", column, columns),
			Err:     ErrMissingColumn,
		}
	}
	return nil
}
