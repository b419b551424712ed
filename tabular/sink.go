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
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/rowembed/core"
)

const (
	EmbeddingColumn = "embedding"
	ParentIDColumn  = "parent_id"
)

// Committer finishes a sink. Exactly one of Commit or Abort should be called.
type Committer interface {
	// Commit flushes buffered output and moves the file into place.
	Commit() error
	// Abort discards everything written so far.
	Abort() error
}

// atomicFile is a temporary file that replaces its target on commit.
type atomicFile struct {
	path   string
	tmp    *os.File
	buf    *bufio.Writer
	closed bool
}

func createAtomic(path string) (*atomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &atomicFile{path: path, tmp: tmp, buf: bufio.NewWriter(tmp)}, nil
}

func (a *atomicFile) Write(p []byte) (int, error) {
	if a.closed {
		return 0, ErrSinkClosed
	}
	return a.buf.Write(p)
}

func (a *atomicFile) commit() error {
	if a.closed {
		return ErrSinkClosed
	}
	a.closed = true

	err := errors.Join(a.buf.Flush(), a.tmp.Sync())
	if closeErr := a.tmp.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		os.Remove(a.tmp.Name())
		return fmt.Errorf("writing %s: %w", a.path, err)
	}
	if err := os.Rename(a.tmp.Name(), a.path); err != nil {
		os.Remove(a.tmp.Name())
		return err
	}
	return nil
}

func (a *atomicFile) abort() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.tmp.Close()
	if err := os.Remove(a.tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CSVSink writes the primary output table as CSV: the source columns,
// then embedding, then parent_id when enabled.
type CSVSink struct {
	file          *atomicFile
	writer        *csv.Writer
	columns       []string
	withParentID  bool
	headerWritten bool
}

// NewCSVSink creates a CSV sink that will write to path on Commit.
func NewCSVSink(path string, columns []string, withParentID bool) (*CSVSink, error) {
	file, err := createAtomic(path)
	if err != nil {
		return nil, err
	}
	return &CSVSink{
		file:         file,
		writer:       csv.NewWriter(file),
		columns:      columns,
		withParentID: withParentID,
	}, nil
}

// Header returns the output column names.
func (s *CSVSink) Header() []string {
	header := append([]string(nil), s.columns...)
	header = append(header, EmbeddingColumn)
	if s.withParentID {
		header = append(header, ParentIDColumn)
	}
	return header
}

func (s *CSVSink) writeHeader() error {
	if s.headerWritten {
		return nil
	}
	s.headerWritten = true
	return s.writer.Write(s.Header())
}

// WriteRecord writes one output row.
func (s *CSVSink) WriteRecord(_ context.Context, record core.OutputRecord) error {
	if err := s.writeHeader(); err != nil {
		return err
	}

	line := make([]string, 0, len(s.columns)+2)
	for _, column := range s.columns {
		value, _ := record.Fields.Get(column)
		line = append(line, value)
	}
	line = append(line, record.Embedding.String())
	if s.withParentID {
		line = append(line, record.ParentID)
	}
	return s.writer.Write(line)
}

// Commit writes the header if no record was written, then moves the file
// into place.
func (s *CSVSink) Commit() error {
	if err := s.writeHeader(); err != nil {
		s.file.abort()
		return err
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.abort()
		return err
	}
	return s.file.commit()
}

// Abort discards the output.
func (s *CSVSink) Abort() error {
	return s.file.abort()
}

// LinkingCSVSink writes the linking table: parent_id and the original text
// of the embed column.
type LinkingCSVSink struct {
	file   *atomicFile
	writer *csv.Writer
}

// NewLinkingCSVSink creates a linking sink whose text column is named column.
func NewLinkingCSVSink(path, column string) (*LinkingCSVSink, error) {
	file, err := createAtomic(path)
	if err != nil {
		return nil, err
	}
	s := &LinkingCSVSink{file: file, writer: csv.NewWriter(file)}
	if err := s.writer.Write([]string{ParentIDColumn, column}); err != nil {
		file.abort()
		return nil, err
	}
	return s, nil
}

// WriteLink writes one linking row.
func (s *LinkingCSVSink) WriteLink(_ context.Context, link core.LinkingRecord) error {
	return s.writer.Write([]string{link.ParentID, link.OriginalText})
}

// Commit moves the linking table into place.
func (s *LinkingCSVSink) Commit() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.abort()
		return err
	}
	return s.file.commit()
}

// Abort discards the linking table.
func (s *LinkingCSVSink) Abort() error {
	return s.file.abort()
}
