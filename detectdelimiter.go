package freiapanel

import (
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// KnownDelimiters are the only runes DetermineDelimiter will return. Other
// punctuation that happens to appear on every line, like the underscores of
// sample names, is ignored.
var KnownDelimiters = []rune{',', '\t', ';', '|'}

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file. Commas win whenever they are
// a candidate, and are also the fallback.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	candidates := make(map[rune]struct{}, len(delimiters))
	for _, v := range delimiters {
		if len(v) > 0 {
			candidates[rune(v[0])] = struct{}{}
		}
	}

	for _, known := range KnownDelimiters {
		if _, exists := candidates[known]; exists {
			return known
		}
	}

	return ','
}
