package sql

import (
	"database/sql/driver"
	"io"
	"sort"
)

// Rows iterates a fully received result set. The wire codec decodes rows
// into maps, so column order is not preserved; columns are reported in
// sorted order to at least be deterministic.
type Rows struct {
	rows []map[string]any
	cols []string
	next int
}

var _ driver.Rows = (*Rows)(nil)

func newRows(rows []map[string]any) *Rows {
	r := &Rows{rows: rows}
	if len(rows) > 0 {
		r.cols = make([]string, 0, len(rows[0]))
		for key := range rows[0] {
			r.cols = append(r.cols, key)
		}
		sort.Strings(r.cols)
	}
	return r
}

func (r *Rows) Columns() []string {
	return r.cols
}

func (r *Rows) Close() error {
	return nil
}

func (r *Rows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}

	row := r.rows[r.next]
	for i, col := range r.cols {
		dest[i] = row[col]
	}

	r.next++
	return nil
}
