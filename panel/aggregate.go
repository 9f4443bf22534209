package panel

import (
	"fmt"
	"log"

	"github.com/carbocation/freiapanel/table"
	"github.com/carbocation/pfx"
)

// Labels of the two median columns in the panel.
const (
	ControlLabel = "ctr"
	CaseLabel    = "case"
)

// MedianVector holds the median of every numeric feature across one cohort,
// in the column order of the cohort's merged table.
type MedianVector struct {
	Label    string
	Features []string
	Values   []float64
}

func (m MedianVector) Len() int {
	return len(m.Features)
}

// Get returns the median for a feature.
func (m MedianVector) Get(feature string) (float64, bool) {
	for i, v := range m.Features {
		if v == feature {
			return m.Values[i], true
		}
	}

	return 0, false
}

// Median joins a cohort's trinucleotide and diversity tables on their shared
// columns and reduces every numeric column of the result to its median.
func Median(label string, trinucleotide, diversity *table.Table) (MedianVector, error) {
	merged, err := table.Merge(trinucleotide, diversity)
	if err != nil {
		return MedianVector{}, pfx.Err(fmt.Errorf("%s: %w", label, err))
	}

	log.Printf("%s: %d of %d trinucleotide rows matched a diversity row\n", label, merged.Len(), trinucleotide.Len())

	medians := merged.Medians()

	out := MedianVector{
		Label:    label,
		Features: make([]string, 0, len(medians)),
		Values:   make([]float64, 0, len(medians)),
	}
	for _, m := range medians {
		out.Features = append(out.Features, m.Column)
		out.Values = append(out.Values, m.Value)
	}

	return out, nil
}

// Aggregate computes the control and the case median vectors.
func Aggregate(tables Tables) (ctr, cas MedianVector, err error) {
	ctr, err = Median(ControlLabel, tables.ControlTrinucleotide, tables.ControlDiversity)
	if err != nil {
		return
	}

	cas, err = Median(CaseLabel, tables.CaseTrinucleotide, tables.CaseDiversity)

	return
}
