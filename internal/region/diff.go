// Package region computes how a preheat window changes between two scroll positions.
package region

import "github.com/mmcdole/lensgrid/internal/domain"

// Diff returns the strips of next that were not covered by prev (added) and the
// strips of prev that next no longer covers (removed). Strips are cut along the
// Y axis, span the full width of the rect they come from, and are omitted when
// their height is not positive.
//
// When the rects do not overlap the whole of next is added and the whole of
// prev is removed. An empty rect contributes nothing.
func Diff(prev, next domain.Rect) (added, removed []domain.Rect) {
	if !prev.Intersects(next) {
		if !next.IsEmpty() {
			added = []domain.Rect{next}
		}
		if !prev.IsEmpty() {
			removed = []domain.Rect{prev}
		}
		return added, removed
	}

	if next.MaxY() > prev.MaxY() {
		added = append(added, domain.Rect{
			X:      next.X,
			Y:      prev.MaxY(),
			Width:  next.Width,
			Height: next.MaxY() - prev.MaxY(),
		})
	}
	if prev.MinY() > next.MinY() {
		added = append(added, domain.Rect{
			X:      next.X,
			Y:      next.MinY(),
			Width:  next.Width,
			Height: prev.MinY() - next.MinY(),
		})
	}

	if prev.MaxY() > next.MaxY() {
		removed = append(removed, domain.Rect{
			X:      prev.X,
			Y:      next.MaxY(),
			Width:  prev.Width,
			Height: prev.MaxY() - next.MaxY(),
		})
	}
	if next.MinY() > prev.MinY() {
		removed = append(removed, domain.Rect{
			X:      prev.X,
			Y:      prev.MinY(),
			Width:  prev.Width,
			Height: next.MinY() - prev.MinY(),
		})
	}

	return added, removed
}

// Area sums the areas of rects
func Area(rects []domain.Rect) float64 {
	var total float64
	for _, r := range rects {
		total += r.Area()
	}
	return total
}
