package panel

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/freiapanel"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// Value is a median as it is stored in a panel file. Missing medians are
// written as empty cells.
type Value float64

func (v Value) MarshalCSV() (string, error) {
	return FormatFloat(float64(v)), nil
}

func (v *Value) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*v = Value(math.NaN())
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*v = Value(f)

	return nil
}

// FormatFloat renders f the way Python's repr does, which is what downstream
// tooling expects: 1.5, 4.0, 1e-05, inf. NaN becomes an empty string.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}

// Row is one feature of the panel.
type Row struct {
	Base string `csv:"base"`
	Ctr  Value  `csv:"ctr"`
	Case Value  `csv:"case"`
}

type Panel []Row

// Build pairs up the control and case medians of every feature present in
// both vectors, in control order. Features seen in only one cohort are
// dropped.
func Build(ctr, cas MedianVector) Panel {
	out := make(Panel, 0, ctr.Len())

	for i, feature := range ctr.Features {
		caseValue, exists := cas.Get(feature)
		if !exists {
			continue
		}

		out = append(out, Row{
			Base: feature,
			Ctr:  Value(ctr.Values[i]),
			Case: Value(caseValue),
		})
	}

	return out
}

// Write serializes the panel as a comma-delimited file with a base,ctr,case
// header, replacing anything already at path.
func Write(ctx context.Context, path string, client *storage.Client, p Panel) error {
	w, err := freiapanel.CreateLocalOrGoogleStorage(ctx, path, client)
	if err != nil {
		return pfx.Err(err)
	}

	bw := bufio.NewWriter(w)

	if err := gocsv.Marshal(p, bw); err != nil {
		w.Close()
		return pfx.Err(err)
	}

	if err := bw.Flush(); err != nil {
		w.Close()
		return pfx.Err(err)
	}

	// Closing commits gs:// objects, so its error matters
	if err := w.Close(); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return nil
}

// Read loads a panel file written by Write.
func Read(ctx context.Context, path string, client *storage.Client) (Panel, error) {
	contents, _, err := freiapanel.ReadAllMaybeCompressed(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make(Panel, 0)
	if err := gocsv.Unmarshal(bytes.NewReader(contents), &out); err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return out, nil
}
