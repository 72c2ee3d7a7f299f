// Package export writes the shopping list as a spreadsheet or CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"recipe-box/internal/shopping"
)

const sheet = "Shopping List"

var header = []string{"category", "item", "quantity", "unit", "checked", "recipes"}

func row(sec shopping.Section, it shopping.Item) []string {
	return []string{
		string(sec.Category),
		it.Name,
		qtyStr(it.Quantity),
		string(it.Unit),
		strconv.FormatBool(it.Checked),
		strings.Join(it.RecipeIDs, ", "),
	}
}

// WriteXLSX writes one row per item, grouped by section, to w.
func WriteXLSX(w io.Writer, sections []shopping.Section) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	// StreamWriter for efficiency on large lists
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}
	if err := sw.SetRow("A1", cells(header)); err != nil {
		return err
	}
	r := 2
	for _, sec := range sections {
		for _, it := range sec.Items {
			cellAddr, _ := excelize.CoordinatesToCellName(1, r)
			if err := sw.SetRow(cellAddr, cells(row(sec, it))); err != nil {
				return err
			}
			r++
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes the same rows as WriteXLSX in CSV form.
func WriteCSV(w io.Writer, sections []shopping.Section) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, sec := range sections {
		for _, it := range sec.Items {
			if err := cw.Write(row(sec, it)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func qtyStr(q *float64) string {
	if q == nil {
		return ""
	}
	return strconv.FormatFloat(*q, 'f', -1, 64)
}
