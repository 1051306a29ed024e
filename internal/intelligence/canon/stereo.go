package canon

import (
	"slices"

	"github.com/turtacn/smartscanon/internal/intelligence/smarts"
)

// implicitNeighbor stands in for the hydrogen or lone pair of a
// three-neighbor stereocenter.
const implicitNeighbor = -1

var (
	cwOrder  = []int{0, 1, 2}
	ccwOrder = []int{0, 2, 1}
)

// orderByTag keeps the first neighbor and reorders the rest by the winding
// of tag.
func orderByTag(order []int, tag smarts.Chirality) []int {
	ord := cwOrder
	if tag == smarts.ChiralCCW {
		ord = ccwOrder
	}
	out := []int{order[0]}
	rest := order[1:]
	for j := range rest {
		out = append(out, rest[ord[j]])
	}
	return out
}

// canTransform reports whether b can be reached from a by rotating the tail
// of a, or of its reversal, around a fixed head.
func canTransform(a, b []int) bool {
	if len(a) != len(b) || len(a) > 4 {
		return false
	}
	if len(a) < 2 {
		return slices.Equal(a, b)
	}
	for _, arr := range rotateTail(a) {
		if slices.Equal(arr, b) {
			return true
		}
		rev := slices.Clone(arr)
		slices.Reverse(rev)
		for _, r := range rotateTail(rev) {
			if slices.Equal(r, b) {
				return true
			}
		}
	}
	return false
}

// rotateTail returns every right rotation of s[1:] with s[0] kept in front.
func rotateTail(s []int) [][]int {
	tail := s[1:]
	n := len(tail)
	out := make([][]int, 0, n)
	for i := 0; i < n; i++ {
		arr := make([]int, 0, len(s))
		arr = append(arr, s[0])
		arr = append(arr, tail[n-i:]...)
		arr = append(arr, tail[:n-i]...)
		out = append(out, arr)
	}
	return out
}

// fixChirality returns the tag a stereocenter needs once its neighbors are
// listed in newOrder instead of oldOrder.  Both orders hold the same atoms.
func fixChirality(tag smarts.Chirality, oldOrder, newOrder []int) smarts.Chirality {
	if tag == smarts.ChiralNone || len(oldOrder) != len(newOrder) {
		return tag
	}
	if len(oldOrder) == 3 {
		oldOrder = slices.Insert(slices.Clone(oldOrder), 1, implicitNeighbor)
		newOrder = slices.Insert(slices.Clone(newOrder), 1, implicitNeighbor)
	}
	// Only tetrahedral centers carry a winding.
	if len(oldOrder) < 2 || len(oldOrder) > 4 {
		return tag
	}
	if canTransform(orderByTag(oldOrder, tag), orderByTag(newOrder, tag)) {
		return tag
	}
	return tag.Invert()
}

//Personal.AI order the ending
