package strategy

// Scores maps a target id to its inspection reward.
type Scores map[int]int

// Regions maps a region (parent waypoint) id to its associated targets, in
// declaration order.
type Regions map[int][]int

// Of returns the score of id; unknown targets score 0.
func (s Scores) Of(id int) int {
	return s[id]
}

// Targets returns a copy of the region's target list.
func (r Regions) Targets(region int) ([]int, bool) {
	adj, ok := r[region]
	if !ok {
		return nil, false
	}
	return append([]int(nil), adj...), true
}

// Best returns the highest-scoring id in order. Ties keep the first element
// encountered; an empty list yields 0.
func (s Scores) Best(order []int) int {
	best, bestScore := 0, 0
	for _, id := range order {
		if score := s.Of(id); score > bestScore {
			best, bestScore = id, score
		}
	}
	return best
}
