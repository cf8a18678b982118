package availability

// Overlaps reports whether two half-open windows share any instant. Touching
// windows (one ends exactly when the other starts) do not overlap.
func Overlaps(a, b Window) bool {
	return !(!a.End.After(b.Start) || !a.Start.Before(b.End))
}

// StaysConflict reports whether any daily window of a overlaps any daily
// window of b. Both window lists are ordered and disjoint, so a merge walk is
// enough.
func StaysConflict(a, b Stay) bool {
	if !a.Start().Before(b.End()) || !b.Start().Before(a.End()) {
		return false
	}

	wa, wb := a.Windows(), b.Windows()
	i, j := 0, 0
	for i < len(wa) && j < len(wb) {
		if Overlaps(wa[i], wb[j]) {
			return true
		}
		if wa[i].End.Before(wb[j].End) {
			i++
		} else {
			j++
		}
	}
	return false
}

// HasConflict reports whether candidate overlaps any of the accepted stays.
func HasConflict(candidate Stay, accepted []Stay) bool {
	for _, other := range accepted {
		if StaysConflict(candidate, other) {
			return true
		}
	}
	return false
}
