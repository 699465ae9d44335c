// Package training fits the care gap pipeline from a survey export: it derives the
// care gap label and the late-initiator flag, fits the feature transformer and boosts
// a tree ensemble, producing artifacts the model package can load.
package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Dataset is a column-oriented numeric table. Missing cells are NaN.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]float64
}

// NewDataset creates an empty dataset with the given columns.
func NewDataset(columns ...string) *Dataset {
	ds := &Dataset{index: make(map[string]int)}
	for _, c := range columns {
		ds.addColumn(c)
	}
	return ds
}

// ReadCSV parses a survey export with a header row. Blank and non-numeric cells
// become NaN.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dataset is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	ds := NewDataset()
	for _, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "﻿"))
		if _, dup := ds.index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		ds.addColumn(name)
	}

	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		row := make([]float64, len(ds.columns))
		for i := range row {
			row[i] = math.NaN()
			if i < len(rec) {
				row[i] = parseCell(rec[i])
			}
		}
		ds.rows = append(ds.rows, row)
	}
	return ds, nil
}

// WriteCSV writes the dataset with a header row; NaN cells are written blank.
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(d.columns); err != nil {
		return err
	}
	rec := make([]string, len(d.columns))
	for _, row := range d.rows {
		for i, v := range row {
			if math.IsNaN(v) {
				rec[i] = ""
			} else {
				rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Columns returns the column names in file order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// Len is the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Has reports whether the column exists.
func (d *Dataset) Has(column string) bool {
	_, ok := d.index[column]
	return ok
}

// Value returns the cell at row i of column, or NaN when the column is absent.
func (d *Dataset) Value(i int, column string) float64 {
	c, ok := d.index[column]
	if !ok {
		return math.NaN()
	}
	return d.rows[i][c]
}

// AddRow appends a row given as column → value; absent columns are NaN.
func (d *Dataset) AddRow(values map[string]float64) error {
	row := make([]float64, len(d.columns))
	for i := range row {
		row[i] = math.NaN()
	}
	for k, v := range values {
		c, ok := d.index[k]
		if !ok {
			return fmt.Errorf("unknown column %q", k)
		}
		row[c] = v
	}
	d.rows = append(d.rows, row)
	return nil
}

func (d *Dataset) addColumn(name string) {
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, name)
}

func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
