package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Merge performs a natural inner join: rows of left and right are paired
// whenever they agree on every column name the two tables share. The result
// carries the left columns followed by the right columns that are not keys.
// Rows come out in left order, and a left row that matches several right rows
// is repeated once per match, in right order.
func Merge(left, right *Table) (*Table, error) {
	leftKeys, rightKeys := make([]int, 0), make([]int, 0)
	isKey := make(map[int]struct{})
	for i, name := range left.Header {
		if j := right.Column(name); j >= 0 {
			leftKeys = append(leftKeys, i)
			rightKeys = append(rightKeys, j)
			isKey[j] = struct{}{}
		}
	}

	if len(leftKeys) == 0 {
		return nil, fmt.Errorf("No common columns to perform merge on. Left columns: %v, right columns: %v", left.Header, right.Header)
	}

	rightExtra := make([]int, 0, len(right.Header))
	for j := range right.Header {
		if _, key := isKey[j]; !key {
			rightExtra = append(rightExtra, j)
		}
	}

	out := &Table{
		Header:  append([]string(nil), left.Header...),
		Rows:    make([][]string, 0),
		Numeric: left.numericColumns(),
	}
	for _, j := range rightExtra {
		out.Header = append(out.Header, right.Header[j])
		out.Numeric = append(out.Numeric, right.IsNumeric(j))
	}

	// Numeric key columns compare by value, so that "1" and "1.0" match the
	// same way they would after type inference.
	numericKey := make([]bool, len(leftKeys))
	for k := range leftKeys {
		numericKey[k] = left.IsNumeric(leftKeys[k]) && right.IsNumeric(rightKeys[k])
	}

	index := make(map[string][]int, len(right.Rows))
	for r, row := range right.Rows {
		key := joinKey(row, rightKeys, numericKey)
		index[key] = append(index[key], r)
	}

	for _, lrow := range left.Rows {
		for _, r := range index[joinKey(lrow, leftKeys, numericKey)] {
			rrow := right.Rows[r]
			row := make([]string, 0, len(out.Header))
			row = append(row, lrow...)
			for _, j := range rightExtra {
				row = append(row, rrow[j])
			}
			out.Rows = append(out.Rows, row)
		}
	}

	return out, nil
}

func joinKey(row []string, cols []int, numeric []bool) string {
	parts := make([]string, len(cols))
	for k, col := range cols {
		cell := row[col]
		switch {
		case IsMissing(cell):
			parts[k] = "\x00NA"
		case numeric[k]:
			v, _ := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			parts[k] = strconv.FormatFloat(v, 'g', -1, 64)
		default:
			parts[k] = cell
		}
	}

	return strings.Join(parts, "\x1f")
}
