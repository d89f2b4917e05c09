package filter

import (
	"fmt"
	"strings"

	"github.com/hb9tf/radiacode/detector"
)

type Filterer interface {
	ShouldIgnore(detector.Sample) bool
}

// Ignore reports whether any of the filters rejects the sample.
func Ignore(s detector.Sample, filters []Filterer) bool {
	for _, f := range filters {
		if f.ShouldIgnore(s) {
			return true
		}
	}
	return false
}

// FilterKind drops samples of the listed kinds.
type FilterKind struct {
	Kinds map[string]bool
}

// ParseKinds builds a FilterKind from a comma separated list of sample kinds.
func ParseKinds(list string) (*FilterKind, error) {
	f := &FilterKind{Kinds: map[string]bool{}}
	for _, k := range strings.Split(list, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if !known(k) {
			return nil, fmt.Errorf("%q is not a sample kind, pick from: %s", k, strings.Join(detector.Kinds, ", "))
		}
		f.Kinds[k] = true
	}
	return f, nil
}

func (f *FilterKind) ShouldIgnore(s detector.Sample) bool {
	if s == nil {
		return false
	}
	return f.Kinds[s.Kind()]
}

func known(kind string) bool {
	for _, k := range detector.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
