// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report implements the tabular plumbing between pipeline stages:
// reading search-engine reports, discovering sample identifiers, converting
// DDA exports, subtracting internal standards, and shaping per-method tool
// inputs. All tables are delimited text with a header row; .tsv files are
// tab-separated, everything else comma-separated.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Table is an in-memory delimited file: a header row and data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// delimiterFor picks the field delimiter from the file extension.
func delimiterFor(path string) rune {
	if filepath.Ext(path) == ".tsv" {
		return '\t'
	}
	return ','
}

// ReadTable loads a delimited file. The first row is the header; an empty
// file is an error because every report this pipeline consumes has one.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiterFor(path)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table %s is empty", path)
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Write stores the table at path, choosing the delimiter from the extension.
func (t *Table) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating table %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiterFor(path)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("writing table %s: %w", path, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing table %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

// ColumnIndex returns the position of the named header column.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %q not found (header: %s)", name, strings.Join(t.Header, ", "))
}

// UniqueColumn returns the distinct values of the named column in order of
// first appearance, skipping blanks.
func (t *Table) UniqueColumn(name string) ([]string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var values []string
	for _, row := range t.Rows {
		if idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values, nil
}
