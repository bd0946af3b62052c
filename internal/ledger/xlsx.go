package ledger

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

const (
	SheetName = "Records"

	// Built-in "#,##0.00" number format.
	numFmtMoney = 4
)

// WriteXLSX writes the records as a single-sheet workbook. Number columns are
// stored as numbers so spreadsheet formulas work on them.
func WriteXLSX(w io.Writer, records []domain.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}

	fields := domain.AllFields()
	if err := sw.SetColWidth(1, len(fields), 14); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}

	header := make([]interface{}, len(fields))
	for i, label := range Header() {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: label}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}

	for i, r := range records {
		row := make([]interface{}, len(fields))
		for j, fld := range fields {
			v := r.Get(fld)
			if fld.Numeric() && v != "" {
				row[j] = excelize.Cell{StyleID: moneyStyle, Value: calc.ParseAmount(v).InexactFloat64()}
				continue
			}
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("WriteXLSX: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("WriteXLSX: %w", err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	return nil
}
