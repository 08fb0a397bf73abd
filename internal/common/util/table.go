package util

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Table builds column aligned text. Writes go to a strings.Builder and never fail.
type Table struct {
	sb     *strings.Builder
	writer *tabwriter.Writer
}

func NewTable(headers ...string) *Table {
	sb := &strings.Builder{}
	t := &Table{sb: sb, writer: tabwriter.NewWriter(sb, 1, 1, 2, ' ', 0)}
	if len(headers) > 0 {
		t.Row(headers...)
	}
	return t
}

// Row appends one line with one cell per value.
func (t *Table) Row(cells ...string) {
	_, _ = fmt.Fprintln(t.writer, strings.Join(cells, "\t"))
}

// Rowf appends one line; cells in format are separated by tabs.
func (t *Table) Rowf(format string, a ...any) {
	_, _ = fmt.Fprintf(t.writer, format+"\n", a...)
}

// String flushes and returns everything written so far.
func (t *Table) String() string {
	_ = t.writer.Flush()
	return t.sb.String()
}
