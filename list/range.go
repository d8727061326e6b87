package list

// Ranges is a set of half-open [start, end) windows of flattened positions,
// as requested by a client viewport.
type Ranges [][2]int64

func (r Ranges) Valid() bool {
	for _, rr := range r {
		if rr[1] < rr[0] {
			return false
		}
		if rr[0] < 0 {
			return false
		}
	}
	return true
}

// clip clamps the range to [0, length), returning ok=false if nothing remains.
func clip(rr [2]int64, length int64) (start, end int64, ok bool) {
	start, end = rr[0], rr[1]
	if start < 0 {
		start = 0
	}
	if end > length {
		end = length
	}
	return start, end, start < end
}
