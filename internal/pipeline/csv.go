package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
)

// WriteCSV writes rows as a CSV with the stable Header() ordering.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSONL writes one JSON object per row.
func WriteJSONL(w io.Writer, rows []Row) error {
	jw := NewJSONLWriter(w)
	for _, r := range rows {
		if err := jw.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// JSONLWriter encodes rows one line at a time, for output written while a batch runs.
//
// Lead fields come from the row's payload, so absent values are null and a present
// empty string stays "". status, failure_kind and error are null when empty.
type JSONLWriter struct {
	enc *json.Encoder
}

func NewJSONLWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

func (jw *JSONLWriter) Write(r Row) error {
	return jw.enc.Encode(rowRecord(r))
}

func rowRecord(r Row) map[string]any {
	rec := map[string]any{
		"text":     r.Text,
		"name":     r.Lead.Name,
		"email":    r.Lead.Email,
		"phone":    r.Lead.Phone,
		"attempts": r.Attempts,
	}
	assignNullable(rec, "status", r.Status)
	assignNullable(rec, "failure_kind", r.FailureKind)
	assignNullable(rec, "error", r.Error)
	return rec
}

func assignNullable(dst map[string]any, key string, value string) {
	if strings.TrimSpace(value) == "" {
		dst[key] = nil
		return
	}
	dst[key] = value
}
