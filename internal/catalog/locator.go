package catalog

import "strings"

// Locator is the "/<issuerKey>/<planKey>" part of a checkout URL.
// The zero value is NoLocator.
type Locator struct {
	Issuer string
	Plan   string
}

// NoLocator is the locator of a navigation without issuer/plan segments.
var NoLocator = Locator{}

// ParseLocator reads the first two non-empty path segments, lower-cased.
// Anything else (fewer segments, blank path) yields NoLocator.
func ParseLocator(path string) Locator {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s = normalizeKey(s); s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) < 2 {
		return NoLocator
	}
	return Locator{Issuer: segs[0], Plan: segs[1]}
}

// IsZero reports whether l is NoLocator.
func (l Locator) IsZero() bool {
	return l.Issuer == "" && l.Plan == ""
}

func (l Locator) String() string {
	if l.IsZero() {
		return "/"
	}
	return "/" + l.Issuer + "/" + l.Plan
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
