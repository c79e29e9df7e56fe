// Package export converts a generated event log into tabular and serialized
// outputs: an XLSX workbook, a CSV file, or JSON. Event properties are
// flattened into columns (the union of all property keys) and rows are
// sorted by user then timestamp, matching the layout analysts expect from
// the demo datasets.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/bookshop/tools/eventgen/internal/session"
)

// ErrUnknownFormat is returned for unsupported export formats.
var ErrUnknownFormat = errors.New("export: unknown format")

// SheetName is the single sheet of the XLSX export.
const SheetName = "User_Event_Logs"

// timestampLayout matches the ISO-8601 second-precision form of the
// source logs.
const timestampLayout = "2006-01-02T15:04:05"

// baseColumns are the fixed leading columns of every export.
var baseColumns = []string{"event_name", "session_id", "user_id", "timestamp", "event_sequence"}

// Table is the flattened form of an event log.
type Table struct {
	// Columns is the header row: the base columns followed by the sorted
	// union of property keys.
	Columns []string
	// Rows holds one entry per event, aligned with Columns. Missing
	// properties are nil.
	Rows [][]any
}

// Flatten builds a table from the event log. Rows are sorted by user_id,
// then timestamp, then sequence.
func Flatten(events []session.Event) *Table {
	propKeys := make(map[string]bool)
	for _, ev := range events {
		for k := range ev.Properties {
			propKeys[k] = true
		}
	}

	extra := make([]string, 0, len(propKeys))
	for k := range propKeys {
		extra = append(extra, k)
	}
	slices.Sort(extra)

	sorted := append([]session.Event(nil), events...)
	slices.SortStableFunc(sorted, func(a, b session.Event) int {
		if c := strings.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return a.Sequence - b.Sequence
	})

	table := &Table{
		Columns: append(append([]string(nil), baseColumns...), extra...),
		Rows:    make([][]any, len(sorted)),
	}

	for i, ev := range sorted {
		row := make([]any, 0, len(table.Columns))
		row = append(row, ev.Name, ev.SessionID, ev.UserID, ev.Timestamp.Format(timestampLayout), ev.Sequence)
		for _, k := range extra {
			if v, ok := ev.Properties[k]; ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		table.Rows[i] = row
	}

	return table
}

// Write exports the event log to path in the given format.
func Write(events []session.Event, path, format string) error {
	switch format {
	case "xlsx":
		return WriteXLSX(events, path)
	case "csv":
		return WriteCSV(events, path)
	case "json":
		return WriteJSON(events, path)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteXLSX writes the flattened log as a single-sheet workbook.
func WriteXLSX(events []session.Event, path string) error {
	table := Flatten(events)

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(SheetName); err != nil {
		return fmt.Errorf("export: creating sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("export: removing default sheet: %w", err)
	}

	header := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	for i, row := range table.Rows {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: saving %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, rowNum int, row []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("export: row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
		return fmt.Errorf("export: row %d: %w", rowNum, err)
	}
	return nil
}

// WriteCSV writes the flattened log as a CSV file.
func WriteCSV(events []session.Event, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: creating %s: %w", path, err)
	}
	defer f.Close()

	if err := writeCSVTo(f, Flatten(events)); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	return nil
}

func writeCSVTo(w io.Writer, table *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return err
	}
	for _, row := range table.Rows {
		fields := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				fields[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := cw.Write(fields); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the raw event log as indented JSON.
func WriteJSON(events []session.Event, path string) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("export: encoding events: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	return nil
}

// Preview writes the first n events as indented JSON, for the console.
func Preview(w io.Writer, events []session.Event, n int) error {
	if n <= 0 {
		return nil
	}
	if n > len(events) {
		n = len(events)
	}
	data, err := json.MarshalIndent(events[:n], "", "  ")
	if err != nil {
		return fmt.Errorf("export: encoding preview: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
