// Package report summarizes a business day of orders and exports the summary
// as an XLSX workbook.
package report
