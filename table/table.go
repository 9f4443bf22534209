// Package table holds small, fully in-memory CSV tables and the handful of
// relational operations needed to reduce them: row filtering, column
// renaming, natural joins and per-column medians.
package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
)

// MissingValues are the cell contents treated as missing data. They match the
// tokens that dataframe CSV readers treat as NA by default.
var MissingValues = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissing reports whether a cell holds no value.
func IsMissing(cell string) bool {
	_, missing := MissingValues[cell]
	return missing
}

// Table is a header and its rows. Numeric records, per column, whether the
// column held only numbers (or missing cells) in the file it was parsed from.
// Subsets and joins inherit it, so a column does not change type because a
// filter or join left it empty. A nil Numeric is inferred from the rows.
type Table struct {
	Header  []string
	Rows    [][]string
	Numeric []bool
}

// Parse reads a delimited table with a header row. Every row must have as
// many fields as the header. A leading byte-order mark is dropped and repeated
// header names are disambiguated as "A", "A.1", "A.2", ...
func Parse(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("No columns to parse from file")
	} else if err != nil {
		return nil, pfx.Err(fmt.Errorf("Header parsing error: %w", err))
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{
		Header: mangleDuplicates(header),
		Rows:   make([][]string, 0),
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		t.Rows = append(t.Rows, row)
	}

	// A header-only file has no evidence of any numeric column
	t.Numeric = make([]bool, len(t.Header))
	for col := range t.Header {
		_, ok := t.Floats(col)
		t.Numeric[col] = ok && len(t.Rows) > 0
	}

	return t, nil
}

// ParseBytes is Parse over an in-memory file.
func ParseBytes(b []byte, delim rune) (*Table, error) {
	return Parse(bytes.NewReader(b), delim)
}

func mangleDuplicates(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]struct{}, len(header))
	for _, name := range header {
		taken[name] = struct{}{}
	}

	for i, name := range header {
		count, dup := seen[name]
		seen[name] = count + 1
		if !dup {
			out[i] = name
			continue
		}

		candidate := fmt.Sprintf("%s.%d", name, count)
		for {
			if _, exists := taken[candidate]; !exists {
				break
			}
			count++
			candidate = fmt.Sprintf("%s.%d", name, count)
		}
		seen[name] = count + 1
		taken[candidate] = struct{}{}
		out[i] = candidate
	}

	return out
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, v := range t.Header {
		if v == name {
			return i
		}
	}

	return -1
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Where returns a new table holding the rows whose column equals value.
func (t *Table) Where(column, value string) (*Table, error) {
	col := t.Column(column)
	if col < 0 {
		return nil, fmt.Errorf("Column %q not found in header %v", column, t.Header)
	}

	out := &Table{
		Header:  append([]string(nil), t.Header...),
		Rows:    make([][]string, 0),
		Numeric: t.numericColumns(),
	}
	for _, row := range t.Rows {
		if row[col] == value {
			out.Rows = append(out.Rows, row)
		}
	}

	return out, nil
}

// Rename returns a copy of t with columns renamed according to oldToNew.
// Names absent from the header are ignored.
func (t *Table) Rename(oldToNew map[string]string) *Table {
	out := &Table{
		Header:  make([]string, len(t.Header)),
		Rows:    t.Rows,
		Numeric: t.numericColumns(),
	}
	for i, name := range t.Header {
		if renamed, exists := oldToNew[name]; exists {
			out.Header[i] = renamed
			continue
		}
		out.Header[i] = name
	}

	return out
}

// Floats parses a column. Missing cells become NaN. ok is false when any
// non-missing cell is not a number, in which case the column is not numeric.
func (t *Table) Floats(col int) (values []float64, ok bool) {
	values = make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		cell := row[col]
		if IsMissing(cell) {
			values = append(values, math.NaN())
			continue
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return nil, false
		}
		values = append(values, v)
	}

	return values, true
}

// IsNumeric reports whether the column holds numbers. Without recorded types,
// every non-missing cell must parse, and a column with no values at all counts
// as numeric.
func (t *Table) IsNumeric(col int) bool {
	if t.Numeric != nil {
		return t.Numeric[col]
	}

	_, ok := t.Floats(col)
	return ok
}

func (t *Table) numericColumns() []bool {
	out := make([]bool, len(t.Header))
	for col := range t.Header {
		out[col] = t.IsNumeric(col)
	}

	return out
}

// Median is one entry of a median vector.
type Median struct {
	Column string
	Value  float64
}

// Medians computes the median of every numeric column, skipping missing
// cells. Columns without a single value yield NaN. Non-numeric columns are
// left out.
func (t *Table) Medians() []Median {
	out := make([]Median, 0, len(t.Header))

	for col, name := range t.Header {
		if !t.IsNumeric(col) {
			continue
		}

		values, ok := t.Floats(col)
		if !ok {
			continue
		}

		present := make(stats.Float64Data, 0, len(values))
		for _, v := range values {
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}

		median, err := present.Median()
		if err != nil {
			median = math.NaN()
		}

		out = append(out, Median{Column: name, Value: median})
	}

	return out
}
