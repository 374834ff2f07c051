package service

import "github.com/samber/lo"

// Registry is the ordered list of configured adapters.
type Registry []SourceAdapter

func (r Registry) Adapters() []SourceAdapter {
	return r
}

// AdapterFor returns the first adapter that recognizes link.
func (r Registry) AdapterFor(link string) (SourceAdapter, bool) {
	return lo.Find(r, func(a SourceAdapter) bool { return a.Recognizes(link) })
}
