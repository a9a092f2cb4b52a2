// Package export builds a spreadsheet from the per-collection artifacts.
//
// Every item becomes one row: nested objects are flattened to dotted
// column names and arrays are kept as JSON text. The workbook has an ALL
// sheet followed by one sheet per collection, each starting with the
// project_name and project_id columns. Workbooks are named after the
// current date and never overwrite an earlier one.
package export
