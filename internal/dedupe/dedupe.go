// Package dedupe detects duplicate scholarship entries by exact URL and
// fuzzy program-name similarity.
package dedupe

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Entry is the slice of a stored record that matters for duplicate
// detection.
type Entry struct {
	URL  string
	Name string
}

// Index holds the known entries for one run. It is owned by a single
// run and is not safe for concurrent use.
type Index struct {
	entries   []Entry
	threshold float64
	metric    *metrics.Levenshtein
}

// NewIndex creates an empty Index. threshold is the fuzzy similarity
// cutoff on a 0-100 scale at or above which two names are considered
// the same program.
func NewIndex(threshold int) *Index {
	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false
	return &Index{
		threshold: float64(threshold),
		metric:    metric,
	}
}

// Add registers an entry so later candidates in the same run are
// checked against it.
func (ix *Index) Add(url, name string) {
	ix.entries = append(ix.entries, Entry{URL: url, Name: name})
}

// Len reports the number of known entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// IsDuplicate reports whether the candidate collides with any known
// entry: first by exact URL equality, then by case-folded fuzzy name
// similarity at or above the threshold. Name comparison is skipped when
// either name is empty.
func (ix *Index) IsDuplicate(url, name string) bool {
	for _, entry := range ix.entries {
		if url != "" && url == entry.URL {
			return true
		}
		if name == "" || entry.Name == "" {
			continue
		}
		if ix.similarity(name, entry.Name) >= ix.threshold {
			return true
		}
	}
	return false
}

// similarity returns the normalized edit-distance ratio between two
// names on a 0-100 scale.
func (ix *Index) similarity(a, b string) float64 {
	return strutil.Similarity(a, b, ix.metric) * 100
}
