package internal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/luminahr/formpipe"
)

// CSVSource adapts an io.Reader of CSV data into a TabularSource. The first
// row is consumed as the header; column labels are normalized once so every
// emitted record is keyed ready for field matching.
type CSVSource struct {
	reader *csv.Reader
	closer io.Closer
	header []string
}

// NewCSVSource wraps r as a tabular source, reading the header row eagerly.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Ragged rows are tolerated; short rows produce empty trailing cells.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	normalized := make([]string, len(header))
	for i, label := range header {
		normalized[i] = formpipe.NormalizeLabel(label)
	}

	source := &CSVSource{reader: reader, header: normalized}
	if closer, ok := r.(io.Closer); ok {
		source.closer = closer
	}
	return source, nil
}

// NewCSVFileSource opens path as a CSV tabular source. Close releases the
// underlying file.
func NewCSVFileSource(path string) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	source, err := NewCSVSource(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return source, nil
}

// Next returns the next data row keyed by normalized column label, or
// io.EOF after the last row. A malformed row returns its parse error; the
// source remains usable for subsequent rows.
func (s *CSVSource) Next() (formpipe.RowRecord, error) {
	record, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	row := make(formpipe.RowRecord, len(s.header))
	for i, key := range s.header {
		if i < len(record) {
			row[key] = record[i]
		} else {
			row[key] = ""
		}
	}
	return row, nil
}

// Close closes the underlying reader when it is closable.
func (s *CSVSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
