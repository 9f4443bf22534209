package panel

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/freiapanel"
	"github.com/carbocation/freiapanel/table"
	"github.com/carbocation/pfx"
)

// Column names in the combined trinucleotide file, and the diversity file
// names they are renamed to.
const (
	TrinucleotideSampleColumn = "WhichSample"
	TrinucleotideGroupColumn  = "WhichGroup"
	SampleColumn              = "sample_name"
	GroupColumn               = "group"
)

// Mode records which set of inputs was read.
type Mode int

const (
	ModeCombined Mode = iota
	ModeSplit
)

func (m Mode) String() string {
	if m == ModeSplit {
		return "split"
	}
	return "combined"
}

// Inputs are the paths of the combined tables and, for the fallback, of the
// four per-group tables. Paths may be local or gs:// URLs.
type Inputs struct {
	Trinucleotide string
	Diversity     string

	TrinucleotideControls string
	DiversityControls     string
	TrinucleotideCases    string
	DiversityCases        string
}

// Labels are the values of the group column that select each cohort in the
// combined tables.
type Labels struct {
	Control string
	Case    string
}

var DefaultLabels = Labels{
	Control: "control",
	Case:    "cancer",
}

// Tables are the four per-group tables that feed the medians.
type Tables struct {
	Mode Mode

	ControlTrinucleotide *table.Table
	ControlDiversity     *table.Table
	CaseTrinucleotide    *table.Table
	CaseDiversity        *table.Table
}

// Load reads the combined tables when both exist and splits them by group.
// If either combined path is not found, the four per-group files are read
// instead. Any other failure, including an unreadable combined file, is
// returned.
func Load(ctx context.Context, in Inputs, labels Labels, client *storage.Client) (Tables, error) {
	combined := true
	for _, path := range []string{in.Trinucleotide, in.Diversity} {
		if path == "" {
			combined = false
			break
		}

		exists, err := freiapanel.Exists(ctx, path, client)
		if err != nil {
			return Tables{}, pfx.Err(err)
		}
		if !exists {
			log.Printf("Combined input %s was not found, reading per-group inputs instead\n", path)
			combined = false
			break
		}
	}

	if combined {
		return LoadCombined(ctx, in.Trinucleotide, in.Diversity, labels, client)
	}

	return LoadSplit(ctx, in, client)
}

// LoadCombined splits both combined tables by group. The trinucleotide
// table's sample and group columns are renamed to the diversity table's names
// so that the two can be joined.
func LoadCombined(ctx context.Context, trinucleotidePath, diversityPath string, labels Labels, client *storage.Client) (Tables, error) {
	out := Tables{Mode: ModeCombined}

	tnc, err := ReadTable(ctx, trinucleotidePath, client)
	if err != nil {
		return out, err
	}

	div, err := ReadTable(ctx, diversityPath, client)
	if err != nil {
		return out, err
	}

	renames := map[string]string{
		TrinucleotideSampleColumn: SampleColumn,
		TrinucleotideGroupColumn:  GroupColumn,
	}

	for _, v := range []struct {
		dst   **table.Table
		src   *table.Table
		col   string
		label string
		path  string
		// Only the trinucleotide table uses its own column names
		rename bool
	}{
		{&out.ControlTrinucleotide, tnc, TrinucleotideGroupColumn, labels.Control, trinucleotidePath, true},
		{&out.CaseTrinucleotide, tnc, TrinucleotideGroupColumn, labels.Case, trinucleotidePath, true},
		{&out.ControlDiversity, div, GroupColumn, labels.Control, diversityPath, false},
		{&out.CaseDiversity, div, GroupColumn, labels.Case, diversityPath, false},
	} {
		subset, err := v.src.Where(v.col, v.label)
		if err != nil {
			return out, pfx.Err(fmt.Errorf("%s: %w", v.path, err))
		}
		if v.rename {
			subset = subset.Rename(renames)
		}
		*v.dst = subset
	}

	log.Printf("Combined inputs hold %d control and %d case trinucleotide rows, %d control and %d case diversity rows\n",
		out.ControlTrinucleotide.Len(), out.CaseTrinucleotide.Len(), out.ControlDiversity.Len(), out.CaseDiversity.Len())

	return out, nil
}

// LoadSplit reads the four per-group tables as they are.
func LoadSplit(ctx context.Context, in Inputs, client *storage.Client) (Tables, error) {
	out := Tables{Mode: ModeSplit}

	missing := make([]string, 0)
	for _, v := range []struct {
		flag string
		path string
	}{
		{"input_trinucleotide_controls", in.TrinucleotideControls},
		{"input_diversity_controls", in.DiversityControls},
		{"input_trinucleotide_cases", in.TrinucleotideCases},
		{"input_diversity_cases", in.DiversityCases},
	} {
		if v.path == "" {
			missing = append(missing, "--"+v.flag)
		}
	}
	if len(missing) > 0 {
		return out, fmt.Errorf("The combined inputs %q and %q could not both be found, so per-group inputs are required, but %s were not provided",
			in.Trinucleotide, in.Diversity, strings.Join(missing, ", "))
	}

	var err error
	for _, v := range []struct {
		dst  **table.Table
		path string
	}{
		{&out.ControlTrinucleotide, in.TrinucleotideControls},
		{&out.ControlDiversity, in.DiversityControls},
		{&out.CaseTrinucleotide, in.TrinucleotideCases},
		{&out.CaseDiversity, in.DiversityCases},
	} {
		*v.dst, err = ReadTable(ctx, v.path, client)
		if err != nil {
			return out, err
		}
	}

	return out, nil
}

// ReadTable loads one delimited table from a local or gs:// path. Compressed
// files are decompressed and the delimiter is inferred from the contents.
func ReadTable(ctx context.Context, path string, client *storage.Client) (*table.Table, error) {
	log.Printf("Loading %s\n", path)

	contents, dt, err := freiapanel.ReadAllMaybeCompressed(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	delim := freiapanel.DetermineDelimiter(bytes.NewReader(contents))
	log.Printf("Determined %s (%s) delimiter to be %q\n", path, dt, string(delim))

	tab, err := table.ParseBytes(contents, delim)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return tab, nil
}
