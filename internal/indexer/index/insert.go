package index

import "math/bits"

// InsertLast moves the last element of list to its rank among the elements
// before it, which must already be ordered by non-increasing frequency. The
// list is modified in place.
//
// The position is found by binary search over list[:len(list)-1]. A probe with
// a frequency greater than or equal to the new one sends the search right, so
// a late arrival always lands after existing entries of the same frequency.
// InsertLast returns the probed midpoints in visit order, or nil when the list
// holds fewer than two elements.
func InsertLast(list OccurrenceList) []int {
	n := len(list)
	if n < 2 {
		return nil
	}
	last := list[n-1]
	lo, hi := 0, n-2
	probes := make([]int, 0, bits.Len(uint(n)))
	for lo <= hi {
		mid := lo + (hi-lo)/2
		probes = append(probes, mid)
		if last.Frequency > list[mid].Frequency {
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	copy(list[lo+1:], list[lo:n-1])
	list[lo] = last
	return probes
}
