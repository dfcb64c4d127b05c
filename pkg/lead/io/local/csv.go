package local

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// DefaultTextColumn is the input column read when none is named.
const DefaultTextColumn = "text"

// ReadTextsCSV reads a CSV file and returns the values from the named column.
//
// The header match is case-insensitive. Rows are returned as-is; blank texts are the
// extractor's concern, not the reader's.
func ReadTextsCSV(r io.Reader, column string) ([]string, error) {
	column = strings.TrimSpace(column)
	if column == "" {
		column = DefaultTextColumn
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	textIdx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")), column) {
			textIdx = i
			break
		}
	}
	if textIdx < 0 {
		return nil, fmt.Errorf("missing required column %q", column)
	}

	var texts []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if textIdx >= len(rec) {
			return nil, fmt.Errorf("row has %d columns, want at least %d", len(rec), textIdx+1)
		}
		texts = append(texts, rec[textIdx])
	}
	return texts, nil
}
