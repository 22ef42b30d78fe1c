package pokedex

import (
	"sort"

	"github.com/sahilm/fuzzy"
)

// records adapts a slice to fuzzy.Source. Each record is matched on its
// number and name, or its text in headerless mode.
type records []Record

func (r records) String(i int) string {
	if r[i].Name == "" {
		return r[i].Description
	}
	return r[i].Number + " " + r[i].Name
}

func (r records) Len() int { return len(r) }

// Filter returns the records fuzzily matching query, in their original
// order. An empty query matches everything.
func Filter(list []Record, query string) []Record {
	if query == "" {
		return list
	}

	matches := fuzzy.FindFrom(query, records(list))
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Index < matches[j].Index
	})

	out := make([]Record, 0, len(matches))
	for _, m := range matches {
		out = append(out, list[m.Index])
	}
	return out
}
