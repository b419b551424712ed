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

package chunk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/rowembed/core"
)

// Method selects how text is split.
type Method string

const (
	None       Method = "none"
	Words      Method = "words"
	Characters Method = "characters"
	Sentences  Method = "sentences"
)

// Methods lists every supported method in display order.
var Methods = []Method{None, Words, Characters, Sentences}

var errUnknownMethod = errors.New("unknown chunking method")

// ParseMethod converts a configuration value into a Method.
// Matching is case-insensitive; the empty string selects None.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", None:
		return None, nil
	case Words:
		return Words, nil
	case Characters:
		return Characters, nil
	case Sentences:
		return Sentences, nil
	}
	return "", &core.ConfigurationError{
		Field:   "chunking.method",
		Message: fmt.Sprintf("%q must be one of none, words, characters, sentences", s),
		Err:     errUnknownMethod,
	}
}

// DefaultSize returns the size used when a policy leaves Size unset.
func DefaultSize(m Method) int {
	switch m {
	case Sentences:
		return 3
	case Words, Characters:
		return 100
	default:
		return 0
	}
}

// Policy is a complete chunking configuration.
// Overlap only applies to Words and must be smaller than Size.
type Policy struct {
	Method  Method
	Size    int
	Overlap int
}

// Validate reports configuration errors before any text is split.
func (p Policy) Validate() error {
	switch p.Method {
	case None:
		return nil
	case Words, Characters, Sentences:
	default:
		return &core.ConfigurationError{
			Field:   "chunking.method",
			Message: fmt.Sprintf("%q is not supported", p.Method),
			Err:     errUnknownMethod,
		}
	}

	if p.Size < 1 {
		return core.NewConfigurationError("chunking.size", "must be a positive integer, got %d", p.Size)
	}
	if p.Overlap < 0 {
		return core.NewConfigurationError("chunking.overlap", "must not be negative, got %d", p.Overlap)
	}
	if p.Method == Words && p.Overlap >= p.Size {
		return core.NewConfigurationError("chunking.overlap",
			"overlap %d must be smaller than chunk size %d", p.Overlap, p.Size)
	}
	return nil
}

// WithDefaults fills an unset Size with DefaultSize.
func (p Policy) WithDefaults() Policy {
	if p.Size == 0 {
		p.Size = DefaultSize(p.Method)
	}
	return p
}

func (p Policy) String() string {
	switch p.Method {
	case None:
		return string(None)
	case Words:
		return fmt.Sprintf("words(size=%d, overlap=%d)", p.Size, p.Overlap)
	default:
		return fmt.Sprintf("%s(size=%d)", p.Method, p.Size)
	}
}
