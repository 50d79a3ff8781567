package merge

import (
	"strings"

	"github.com/charmbracelet/log"
)

// Pair maps a background collection to a primary collection.
type Pair struct {
	Src  string
	Dest string
}

// NameMapping is the ordered list of collection pairs for [Engine.MergeNamed].
type NameMapping []Pair

// Sources returns the source names in order.
func (m NameMapping) Sources() []string {
	out := make([]string, len(m))
	for i, p := range m {
		out[i] = p.Src
	}
	return out
}

// ParsePairs builds a mapping from steering entries. Entries are split on
// whitespace and the resulting names are paired in order, so both
// ["a b", "c d"] and ["a", "b", "c", "d"] give a→b, c→d.
//
// An odd number of names drops the last one with a warning. A source that
// was already mapped is remapped to the later destination with a warning.
func ParsePairs(entries []string, logger *log.Logger) NameMapping {
	if logger == nil {
		logger = log.Default()
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.Fields(e)...)
	}
	if len(names)%2 != 0 {
		logger.Warn("odd number of collection names, last collection ignored",
			"collection", names[len(names)-1])
		names = names[:len(names)-1]
	}

	var m NameMapping
	seen := make(map[string]int)
	for i := 0; i < len(names); i += 2 {
		src, dest := names[i], names[i+1]
		if j, ok := seen[src]; ok {
			logger.Warn("collection mapped twice, last mapping wins",
				"src", src,
				"dest", dest,
				"previous", m[j].Dest)
			m[j].Dest = dest
			continue
		}
		seen[src] = len(m)
		m = append(m, Pair{Src: src, Dest: dest})
		logger.Debug("merging background collection", "src", src, "dest", dest)
	}
	return m
}
