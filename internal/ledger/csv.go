package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

// Rows with fewer fields than this are skipped on import.
const minImportFields = 2

// Header returns the column labels in table order.
func Header() []string {
	fields := domain.AllFields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label()
	}
	return out
}

// WriteCSV writes a header row followed by every column of each record.
func WriteCSV(w io.Writer, records []domain.Record) error {
	fields := domain.AllFields()
	cw := csv.NewWriter(w)

	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	row := make([]string, len(fields))
	for _, r := range records {
		for i, f := range fields {
			row[i] = r.Get(f)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("WriteCSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	return nil
}

// ReadCSV parses an exported table back into draft records. The header row
// is skipped, columns map by position, values are trimmed and derived fields
// recomputed. Short or malformed rows are skipped.
func ReadCSV(r io.Reader, c *calc.Calculator) ([]domain.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	fields := domain.AllFields()
	var out []domain.Record
	header := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if err != nil && !errors.As(err, &perr) {
			return nil, fmt.Errorf("ReadCSV: %w", err)
		}
		// The first line is the header even when it does not parse.
		if header {
			header = false
			continue
		}
		if err != nil {
			continue
		}
		if len(row) < minImportFields {
			continue
		}

		rec := domain.Record{Draft: true}
		for i, f := range fields {
			if i < len(row) {
				rec.Set(f, strings.TrimSpace(row[i]))
			}
		}
		out = append(out, c.Apply(rec))
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("ReadCSV: %w", domain.ErrEmptyImport)
	}
	return out, nil
}
