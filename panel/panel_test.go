package panel

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/carbocation/freiapanel/table"
	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

const (
	combinedTrinucleotide = `WhichSample,WhichGroup,A,C
c1,control,1,0.5
c2,control,2,0.25
k1,cancer,3,0.75
k2,cancer,5,0.125
`
	combinedDiversity = `sample_name,group,MDS
c1,control,10
c2,control,20
k1,cancer,30
k2,cancer,50
`
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	return path
}

func floatsEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func TestLoadCombinedSplitsByGroup(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		Trinucleotide: writeFile(t, dir, "tnc.csv", combinedTrinucleotide),
		Diversity:     writeFile(t, dir, "div.csv", combinedDiversity),
	}

	tables, err := Load(context.Background(), in, DefaultLabels, nil)
	if err != nil {
		t.Fatal(err)
	}

	if tables.Mode != ModeCombined {
		t.Errorf("Expected combined mode, got %s", tables.Mode)
	}

	if n := tables.ControlTrinucleotide.Len() + tables.CaseTrinucleotide.Len(); n != 4 {
		t.Errorf("Split trinucleotide rows sum to %d, expected 4", n)
	}
	if n := tables.ControlDiversity.Len() + tables.CaseDiversity.Len(); n != 4 {
		t.Errorf("Split diversity rows sum to %d, expected 4", n)
	}

	for _, v := range []struct {
		tab   *table.Table
		label string
	}{
		{tables.ControlTrinucleotide, "control"},
		{tables.CaseTrinucleotide, "cancer"},
		{tables.ControlDiversity, "control"},
		{tables.CaseDiversity, "cancer"},
	} {
		col := v.tab.Column(GroupColumn)
		if col < 0 {
			t.Fatalf("No %s column in %v", GroupColumn, v.tab.Header)
		}
		for _, row := range v.tab.Rows {
			if row[col] != v.label {
				t.Errorf("Row %v should be in group %s", row, v.label)
			}
		}
	}

	want := []string{"sample_name", "group", "A", "C"}
	if diff := cmp.Diff(want, tables.ControlTrinucleotide.Header); diff != "" {
		t.Errorf("renamed header mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCustomLabels(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		Trinucleotide: writeFile(t, dir, "tnc.csv", strings.ReplaceAll(combinedTrinucleotide, "cancer", "case")),
		Diversity:     writeFile(t, dir, "div.csv", strings.ReplaceAll(combinedDiversity, "cancer", "case")),
	}

	tables, err := Load(context.Background(), in, Labels{Control: "control", Case: "case"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if tables.CaseTrinucleotide.Len() != 2 || tables.CaseDiversity.Len() != 2 {
		t.Errorf("Expected 2 case rows in each table, got %d and %d", tables.CaseTrinucleotide.Len(), tables.CaseDiversity.Len())
	}
}

func TestLoadFallsBackWhenCombinedMissing(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		Trinucleotide: filepath.Join(dir, "absent.csv"),
		Diversity:     writeFile(t, dir, "div.csv", combinedDiversity),

		TrinucleotideControls: writeFile(t, dir, "tnc_ctr.csv", "sample_name,A\nc1,1\nc2,2\n"),
		DiversityControls:     writeFile(t, dir, "div_ctr.csv", "sample_name,MDS\nc1,10\nc2,20\n"),
		TrinucleotideCases:    writeFile(t, dir, "tnc_cas.csv", "sample_name,A\nk1,3\n"),
		DiversityCases:        writeFile(t, dir, "div_cas.csv", "sample_name,MDS\nk1,30\n"),
	}

	tables, err := Load(context.Background(), in, DefaultLabels, nil)
	if err != nil {
		t.Fatal(err)
	}

	if tables.Mode != ModeSplit {
		t.Errorf("Expected split mode, got %s", tables.Mode)
	}

	if tables.ControlTrinucleotide.Len() != 2 || tables.CaseDiversity.Len() != 1 {
		t.Errorf("Per-group tables were not read as given")
	}
}

func TestLoadFallbackRequiresSplitInputs(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		Trinucleotide:         filepath.Join(dir, "absent.csv"),
		Diversity:             filepath.Join(dir, "absent_too.csv"),
		TrinucleotideControls: writeFile(t, dir, "tnc_ctr.csv", "sample_name,A\nc1,1\n"),
	}

	_, err := Load(context.Background(), in, DefaultLabels, nil)
	if err == nil {
		t.Fatal("Expected an error when per-group inputs are missing")
	}

	if !strings.Contains(err.Error(), "--input_diversity_cases") {
		t.Errorf("Error %q does not name the missing inputs", err)
	}
}

func TestLoadMalformedCombinedDoesNotFallBack(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		Trinucleotide: writeFile(t, dir, "tnc.csv", "WhichSample,WhichGroup,A\nc1,control\n"),
		Diversity:     writeFile(t, dir, "div.csv", combinedDiversity),

		TrinucleotideControls: writeFile(t, dir, "tnc_ctr.csv", "sample_name,A\nc1,1\n"),
		DiversityControls:     writeFile(t, dir, "div_ctr.csv", "sample_name,MDS\nc1,10\n"),
		TrinucleotideCases:    writeFile(t, dir, "tnc_cas.csv", "sample_name,A\nk1,3\n"),
		DiversityCases:        writeFile(t, dir, "div_cas.csv", "sample_name,MDS\nk1,30\n"),
	}

	if _, err := Load(context.Background(), in, DefaultLabels, nil); err == nil {
		t.Fatal("Expected a malformed combined file to be reported, not skipped")
	}
}

func TestLoadUnreadableCombinedDoesNotFallBack(t *testing.T) {
	dir := t.TempDir()
	notADir := writeFile(t, dir, "tnc.csv", combinedTrinucleotide)
	in := Inputs{
		// Stat fails with ENOTDIR, which is not the same as the file being absent
		Trinucleotide: filepath.Join(notADir, "x"),
		Diversity:     writeFile(t, dir, "div.csv", combinedDiversity),

		TrinucleotideControls: writeFile(t, dir, "tnc_ctr.csv", "sample_name,A\nc1,1\n"),
		DiversityControls:     writeFile(t, dir, "div_ctr.csv", "sample_name,MDS\nc1,10\n"),
		TrinucleotideCases:    writeFile(t, dir, "tnc_cas.csv", "sample_name,A\nk1,3\n"),
		DiversityCases:        writeFile(t, dir, "div_cas.csv", "sample_name,MDS\nk1,30\n"),
	}

	if _, err := Load(context.Background(), in, DefaultLabels, nil); err == nil {
		t.Fatal("Expected an unreadable combined path to be reported, not replaced by per-group inputs")
	}
}

func TestLoadCombinedByteOrderMark(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		Trinucleotide: writeFile(t, dir, "tnc.csv", "\ufeff"+combinedTrinucleotide+"x1,control,9,0.9\n"),
		Diversity:     writeFile(t, dir, "div.csv", "\ufeff"+combinedDiversity),
	}

	tables, err := Load(context.Background(), in, DefaultLabels, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctr, err := Median(ControlLabel, tables.ControlTrinucleotide, tables.ControlDiversity)
	if err != nil {
		t.Fatal(err)
	}

	// x1 has no diversity row and must not be joined in
	if got, _ := ctr.Get("A"); got != 1.5 {
		t.Errorf("Expected control median 1.5 for A, got %v", got)
	}
}

func TestLoadCombinedMissingGroupColumn(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		Trinucleotide: writeFile(t, dir, "tnc.csv", "sample_name,group,A\nc1,control,1\n"),
		Diversity:     writeFile(t, dir, "div.csv", combinedDiversity),
	}

	if _, err := Load(context.Background(), in, DefaultLabels, nil); err == nil {
		t.Fatal("Expected an error when WhichGroup is absent")
	}
}

// reference computes the median independently: gonum's empirical quantile on
// sorted data for odd counts, the mean of the two middle values otherwise.
func reference(values []float64) float64 {
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return math.NaN()
	}
	sort.Float64s(x)

	if len(x)%2 == 1 {
		return stat.Quantile(0.5, stat.Empirical, x, nil)
	}

	return stat.Mean(x[len(x)/2-1:len(x)/2+1], nil)
}

func TestMedianMatchesReference(t *testing.T) {
	tnc, err := table.ParseBytes([]byte(strings.Join([]string{
		"sample_name,group,AAA,AAC,AAG",
		"s1,control,0.011,0.5,",
		"s2,control,0.013,0.1,0.2",
		"s3,control,0.007,0.9,0.4",
		"s4,control,0.021,0.3,NA",
		"s5,control,0.002,0.7,0.1",
	}, "\n")), ',')
	if err != nil {
		t.Fatal(err)
	}
	div, err := table.ParseBytes([]byte("sample_name,group,MDS\ns1,control,1.1\ns2,control,1.4\ns3,control,0.9\ns4,control,1.0\ns5,control,1.2\ns6,control,9\n"), ',')
	if err != nil {
		t.Fatal(err)
	}

	mv, err := Median(ControlLabel, tnc, div)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"AAA", "AAC", "AAG", "MDS"}, mv.Features); diff != "" {
		t.Fatalf("features mismatch (-want +got):\n%s", diff)
	}

	merged, err := table.Merge(tnc, div)
	if err != nil {
		t.Fatal(err)
	}

	for i, feature := range mv.Features {
		values, ok := merged.Floats(merged.Column(feature))
		if !ok {
			t.Fatalf("%s is not numeric", feature)
		}

		if expected := reference(values); !scalar.EqualWithinAbs(mv.Values[i], expected, 1e-12) {
			t.Errorf("%s: median %v, expected %v", feature, mv.Values[i], expected)
		}
	}
}

func TestMedianOddAndEven(t *testing.T) {
	for _, v := range []struct {
		values   []string
		expected float64
	}{
		{[]string{"1", "2", "3"}, 2},
		{[]string{"1", "2", "3", "4"}, 2.5},
		{[]string{"3", "1", "2"}, 2},
		{[]string{"", "NA"}, math.NaN()},
	} {
		tnc := &table.Table{Header: []string{"sample_name", "A"}}
		div := &table.Table{Header: []string{"sample_name"}}
		for i, value := range v.values {
			id := string(rune('a' + i))
			tnc.Rows = append(tnc.Rows, []string{id, value})
			div.Rows = append(div.Rows, []string{id})
		}

		mv, err := Median(CaseLabel, tnc, div)
		if err != nil {
			t.Fatal(err)
		}

		got, exists := mv.Get("A")
		if !exists {
			t.Fatalf("%v: no median for A", v.values)
		}
		if !floatsEqual(got, v.expected) {
			t.Errorf("%v: median %v, expected %v", v.values, got, v.expected)
		}
	}
}

func TestBuildIntersectsFeatures(t *testing.T) {
	ctr := MedianVector{Label: ControlLabel, Features: []string{"A", "B", "C"}, Values: []float64{1, 2, 3}}
	cas := MedianVector{Label: CaseLabel, Features: []string{"C", "A", "D"}, Values: []float64{30, 10, 40}}

	got := Build(ctr, cas)

	want := Panel{
		{Base: "A", Ctr: 1, Case: 10},
		{Base: "C", Ctr: 3, Case: 30},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("panel mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatFloat(t *testing.T) {
	for input, expected := range map[float64]string{
		1.5:           "1.5",
		4:             "4.0",
		-2:            "-2.0",
		0:             "0.0",
		0.015625:      "0.015625",
		0.00001:       "1e-05",
		0.0001:        "0.0001",
		1.25e-7:       "1.25e-07",
		1e16:          "1e+16",
		math.Inf(1):   "inf",
		math.Inf(-1):  "-inf",
		math.NaN():    "",
		123456.789012: "123456.789012",
	} {
		if got := FormatFloat(input); got != expected {
			t.Errorf("FormatFloat(%v) = %q, expected %q", input, got, expected)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.csv")

	p := Panel{
		{Base: "AAA", Ctr: 0.0123, Case: 0.0456},
		{Base: "MDS", Ctr: 1.5, Case: 4},
		{Base: "TTT", Ctr: Value(math.NaN()), Case: 2e-05},
	}

	if err := Write(context.Background(), path, nil, p); err != nil {
		t.Fatal(err)
	}

	// Writing again replaces the file rather than appending to it
	if err := Write(context.Background(), path, nil, p); err != nil {
		t.Fatal(err)
	}

	got, err := Read(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(p, got, cmp.Comparer(func(a, b Value) bool {
		return floatsEqual(float64(a), float64(b))
	})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "base,ctr,case\n") {
		t.Errorf("Unexpected header in %q", raw)
	}
	if !strings.Contains(string(raw), "\nTTT,,2e-05\n") {
		t.Errorf("Missing median should be an empty cell, got %q", raw)
	}
}

func TestCreateEndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		Trinucleotide: writeFile(t, dir, "Dat_GT__sample.csv", combinedTrinucleotide),
		Diversity:     writeFile(t, dir, "Dat_GT__MDS_sample.csv", combinedDiversity),
	}
	output := filepath.Join(dir, "panel.csv")

	if _, err := Create(context.Background(), in, DefaultLabels, output, nil); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"base,ctr,case",
		"A,1.5,4.0",
		"C,0.375,0.4375",
		"MDS,15.0,40.0",
		"",
	}, "\n")
	if diff := cmp.Diff(want, string(raw)); diff != "" {
		t.Errorf("panel file mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateUnmatchedSamplesDropIdentityColumns(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		Trinucleotide: writeFile(t, dir, "tnc.csv", "WhichSample,WhichGroup,A\nc1.bam,control,1\nk1.bam,cancer,3\n"),
		Diversity:     writeFile(t, dir, "div.csv", "sample_name,group,MDS\nc1,control,10\nk1,cancer,30\n"),
	}
	output := filepath.Join(dir, "panel.csv")

	if _, err := Create(context.Background(), in, DefaultLabels, output, nil); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}

	want := "base,ctr,case\nA,,\nMDS,,\n"
	if diff := cmp.Diff(want, string(raw)); diff != "" {
		t.Errorf("panel file mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateEndToEndSplit(t *testing.T) {
	dir := t.TempDir()
	in := Inputs{
		Trinucleotide: filepath.Join(dir, "Dat_GT__sample.csv"),
		Diversity:     filepath.Join(dir, "Dat_GT__MDS_sample.csv"),

		TrinucleotideControls: writeFile(t, dir, "tnc_ctr.tsv", "sample_name\tgroup\tA\tonlyctr\nc1\tcontrol\t1\t9\nc2\tcontrol\t2\t9\n"),
		DiversityControls:     writeFile(t, dir, "div_ctr.tsv", "sample_name\tgroup\tMDS\nc1\tcontrol\t10\nc2\tcontrol\t20\n"),
		TrinucleotideCases:    writeFile(t, dir, "tnc_cas.tsv", "sample_name\tgroup\tA\nk1\tcancer\t3\nk2\tcancer\t5\n"),
		DiversityCases:        writeFile(t, dir, "div_cas.tsv", "sample_name\tgroup\tMDS\nk1\tcancer\t30\nk2\tcancer\t50\n"),
	}
	output := filepath.Join(dir, "panel.csv")

	p, err := Create(context.Background(), in, DefaultLabels, output, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := Panel{
		{Base: "A", Ctr: 1.5, Case: 4},
		{Base: "MDS", Ctr: 15, Case: 40},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("panel mismatch (-want +got):\n%s", diff)
	}
}
