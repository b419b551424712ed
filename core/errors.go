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
)

// Error classes
var (
	// ErrConfiguration marks user-fixable problems: invalid settings,
	// missing or ambiguous input tables, or an absent embed column.
	ErrConfiguration = errors.New("configuration error")

	// ErrDataShape marks malformed input rows.
	ErrDataShape = errors.New("malformed input data")

	// ErrProvider marks a failed call to the embedding provider.
	// It is recovered per batch and never aborts a run.
	ErrProvider = errors.New("embedding provider error")

	// ErrMissingColumn indicates the embed column is absent from a row or header.
	ErrMissingColumn = errors.New("embed column not found")
)

// ConfigurationError describes one invalid setting.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error // Optional cause
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrConfiguration, msg)
	}
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, msg)
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

// NewConfigurationError is shorthand for a ConfigurationError without a cause.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DataShapeError wraps a problem with a specific input row.
type DataShapeError struct {
	Row int // Zero-based data row index, -1 for the header
	Err error
}

func (e *DataShapeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%v: header: %v", ErrDataShape, e.Err)
	}
	return fmt.Sprintf("%v: row %d: %v", ErrDataShape, e.Row, e.Err)
}

func (e *DataShapeError) Unwrap() []error {
	return []error{ErrDataShape, e.Err}
}
