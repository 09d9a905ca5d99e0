package catalog

import (
	"enrollreport/internal/config"
	"enrollreport/internal/util"
)

// Index resolves course titles to catalog modules in O(1).
type Index struct {
	Modules []config.CourseModule

	byTitle      map[string]int
	byNormalized map[string]int
}

func BuildIndex(modules []config.CourseModule) *Index {
	idx := &Index{
		Modules:      modules,
		byTitle:      make(map[string]int, len(modules)),
		byNormalized: make(map[string]int, len(modules)),
	}
	for i, m := range modules {
		idx.byTitle[m.Title] = i
		idx.byNormalized[util.NormalizeHeader(m.Title)] = i
	}
	return idx
}

// Lookup returns the position of the module for title. Exact matches win;
// otherwise case and spacing differences are tolerated.
func (idx *Index) Lookup(title string) (int, bool) {
	if i, ok := idx.byTitle[title]; ok {
		return i, true
	}
	i, ok := idx.byNormalized[util.NormalizeHeader(title)]
	return i, ok
}

// Label returns the short module label, or "" for titles outside the catalog.
func (idx *Index) Label(title string) string {
	i, ok := idx.Lookup(title)
	if !ok {
		return ""
	}
	return idx.Modules[i].Label
}

func (idx *Index) Len() int {
	return len(idx.Modules)
}
