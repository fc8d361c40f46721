package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/gitrdm/constrata/pkg/constrata"
)

// readCSVTable loads a CSV file with a header row into a Table. Empty
// cells and the markers "NA", "NaN" and "null" become missing values.
func readCSVTable(path string) (*constrata.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header row", path)
	}

	header := records[0]
	cols := make([]constrata.Column, len(header))
	for i, name := range header {
		cols[i] = constrata.Column{Name: name, Values: make([]float64, len(records)-1)}
	}
	for r, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("%s: row %d has %d fields, want %d", path, r+2, len(record), len(header))
		}
		for i, cell := range record {
			x, ok := parseCell(cell)
			if !ok && logger != nil {
				// An unreadable cell is degraded to missing, which repair
				// may then overwrite; the user should hear about it.
				logger.Warn("unparseable cell treated as missing",
					zap.String("file", path),
					zap.Int("row", r+2),
					zap.String("column", header[i]),
					zap.String("value", cell))
			}
			cols[i].Values[r] = x
		}
	}
	return constrata.NewTable(cols...)
}

// parseCell converts one CSV cell to a float. It reports false when the
// cell is neither a number nor a recognized missing marker.
func parseCell(cell string) (float64, bool) {
	switch cell {
	case "", "NA", "NaN", "null":
		return math.NaN(), true
	}
	x, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN(), false
	}
	return x, true
}

// writeCSVTable writes a Table as CSV, rendering missing cells as empty.
func writeCSVTable(t *constrata.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	names := t.ColumnNames()
	if err := w.Write(names); err != nil {
		return err
	}
	row := make([]string, len(names))
	for r := 0; r < t.NumRows(); r++ {
		for i, name := range names {
			x := t.Cell(r, name)
			if math.IsNaN(x) {
				row[i] = ""
			} else {
				row[i] = strconv.FormatFloat(x, 'g', -1, 64)
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
