package allocation

import (
	"cmp"
	"strings"
)

// CompareCandidates is the total order of the candidate list: ascending
// load percent, then descending average rating with unrated employees
// after rated ones, then ascending employee id.
func CompareCandidates(a, b Candidate) int {
	if c := cmp.Compare(a.LoadPercent, b.LoadPercent); c != 0 {
		return c
	}
	if c := compareRatingDesc(a.AverageRating, b.AverageRating); c != 0 {
		return c
	}
	return strings.Compare(a.Employee.ID, b.Employee.ID)
}

func compareRatingDesc(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*b, *a)
	}
}
