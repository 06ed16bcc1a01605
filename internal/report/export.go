package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Resumen"
	waiterSheet  = "Mozos"
	dishSheet    = "Platos"
)

// ExportXLSX writes the report as a workbook with summary, waiter, and dish
// sheets.
func ExportXLSX(w io.Writer, r Report) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	summary := [][]any{
		{"Fecha", r.Day},
		{"Generado", r.Generated.Format("2006-01-02 15:04")},
		{"Mozo", r.Filter.Waiter},
		{"Mesa", r.Filter.Table},
		{"Comandas", r.Orders},
		{"En espera", r.Waiting},
		{"Listas", r.Ready},
		{"Entregadas", r.Delivered},
		{"Platos eliminados", r.Removed},
		{"Ventas", r.Sales.InexactFloat64()},
		{"Preparacion promedio (min)", r.AvgPrepMinutes()},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return err
	}

	rows := [][]any{{"Mozo", "Comandas", "Ventas"}}
	for _, ws := range r.ByWaiter {
		rows = append(rows, []any{ws.Waiter, ws.Orders, ws.Sales.InexactFloat64()})
	}
	if err := addSheet(f, waiterSheet, rows); err != nil {
		return err
	}

	rows = [][]any{{"Plato", "Cantidad", "Ventas"}}
	for _, dc := range r.TopDishes {
		rows = append(rows, []any{dc.Name, dc.Quantity, dc.Sales.InexactFloat64()})
	}
	if err := addSheet(f, dishSheet, rows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportFile writes the report to dir and returns the file path.
func ExportFile(dir string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("reporte-%s.xlsx", r.Day))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := ExportXLSX(out, r); err != nil {
		_ = out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}

func addSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
