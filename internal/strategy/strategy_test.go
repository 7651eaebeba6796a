package strategy

import "testing"

const marker = 4

type scriptedRand struct {
	draws []int
	calls int
}

func (r *scriptedRand) Intn(n int) int {
	v := r.draws[r.calls%len(r.draws)]
	r.calls++
	return v % n
}

func missionScores() Scores {
	return Scores{1: 10, 2: 10, 3: 10, 5: 8, 6: 8, 4: 15, 8: 5}
}

func missionRegions() Regions {
	return Regions{1: {3, 6, 8}, 5: {4, 7, 8}}
}

func newStrategy(t *testing.T, r Rand) *Strategy {
	t.Helper()
	s, err := New(missionScores(), missionRegions(), marker, WithRand(r))
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	return s
}

func TestBaseSelectionPrefersHighestScore(t *testing.T) {
	s := newStrategy(t, &scriptedRand{draws: []int{0}})
	if got := s.SelectNext([]int{6}, 0); got != 6 {
		t.Fatalf("single active target must be returned, got %d", got)
	}
	if got := s.Select([]int{5, 1}, 0).Base; got != 1 {
		t.Fatalf("expected highest score 1, got %d", got)
	}
}

func TestBaseSelectionTieKeepsFirstEncountered(t *testing.T) {
	scores := missionScores()
	if got := scores.Best([]int{3, 1, 2}); got != 3 {
		t.Fatalf("expected first encountered tie 3, got %d", got)
	}
	if got := scores.Best([]int{1, 2, 3}); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := scores.Best(nil); got != 0 {
		t.Fatalf("empty active set must yield 0, got %d", got)
	}
	if got := scores.Best([]int{42}); got != 0 {
		t.Fatalf("unscored targets never beat 0, got %d", got)
	}
}

func TestSelectWithoutRegionKeepsBase(t *testing.T) {
	s := newStrategy(t, &scriptedRand{draws: []int{0}})
	sel := s.Select([]int{1, 4}, 0)
	if sel.Restrategized || sel.Target != 4 {
		t.Fatalf("expected untouched base 4, got %+v", sel)
	}
}

func TestMarkerTargetIsNeverDisplacedInItsRegion(t *testing.T) {
	r := &scriptedRand{draws: []int{2}}
	s := newStrategy(t, r)
	sel := s.Select([]int{1, 4}, 5)
	if sel.Target != marker {
		t.Fatalf("expected marker target kept, got %+v", sel)
	}
	if r.calls != 0 {
		t.Fatalf("keeping the marker must not draw, drew %d times", r.calls)
	}
}

func TestMarkerBaseOutsideItsRegionYieldsZero(t *testing.T) {
	s := newStrategy(t, &scriptedRand{draws: []int{0}})
	if got := s.SelectNext([]int{4, 1}, 1); got != 0 {
		t.Fatalf("expected 0 replacement, got %d", got)
	}
}

func TestRegionReplacementDrawsFromAdjacency(t *testing.T) {
	s := newStrategy(t, &scriptedRand{draws: []int{1}})
	sel := s.Select([]int{1, 2}, 1)
	if !sel.Restrategized || sel.Base != 1 || sel.Target != 6 {
		t.Fatalf("expected replacement 6 from region 1, got %+v", sel)
	}
}

func TestRegionReplacementRedrawsAfterMarker(t *testing.T) {
	// Region 5 is [4 7 8]: the first element is the marker, so no draw happens
	// and the scan stops with 0.
	s := newStrategy(t, &scriptedRand{draws: []int{0}})
	if got := s.SelectNext([]int{1, 2}, 5); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}

	regions := Regions{9: {1, 4, 2}}
	r := &scriptedRand{draws: []int{1, 2}}
	s2, err := New(missionScores(), regions, marker, WithRand(r))
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	// first draw hits the marker, the next element is the marker (no draw),
	// the last element draws index 2.
	if got := s2.SelectNext([]int{1, 3}, 9); got != 2 {
		t.Fatalf("expected 2 after redraw, got %d", got)
	}
	if r.calls != 2 {
		t.Fatalf("expected 2 draws, got %d", r.calls)
	}
}

func TestRegionReplacementCanEndOnMarker(t *testing.T) {
	regions := Regions{9: {2, 4}}
	s, err := New(missionScores(), regions, marker, WithRand(&scriptedRand{draws: []int{1}}))
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	if got := s.SelectNext([]int{1, 3}, 9); got != marker {
		t.Fatalf("expected the marker to leak through the scan, got %d", got)
	}
}

func TestNewRejectsBadTables(t *testing.T) {
	if _, err := New(nil, missionRegions(), marker); err == nil {
		t.Fatalf("expected error for empty scores")
	}
	if _, err := New(Scores{1: -1}, missionRegions(), marker); err == nil {
		t.Fatalf("expected error for negative score")
	}
}
