package strategy

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"
)

// Rand is the random source used for re-strategizing.
type Rand interface {
	Intn(n int) int
}

// Selection explains how SelectNext reached its answer.
type Selection struct {
	Active        []int `json:"active"`
	Region        int   `json:"region"`
	Base          int   `json:"base"`
	Replacement   int   `json:"replacement"`
	Target        int   `json:"target"`
	Restrategized bool  `json:"restrategized"`
}

// Strategy holds the static tables used for target selection.
type Strategy struct {
	scores       Scores
	regions      Regions
	markerTarget int
	rng          Rand
	logger       *zap.SugaredLogger
}

// Option customizes a Strategy.
type Option func(*Strategy)

// WithRand injects the random source (primarily for tests).
func WithRand(r Rand) Option {
	return func(s *Strategy) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithSeed seeds the default random source.
func WithSeed(seed int64) Option {
	return func(s *Strategy) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Strategy) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a strategy. markerTarget is never displaced when it is the base
// pick and present in the current region.
func New(scores Scores, regions Regions, markerTarget int, opts ...Option) (*Strategy, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("strategy: score table is empty")
	}
	for id, score := range scores {
		if score < 0 {
			return nil, fmt.Errorf("strategy: target %d has negative score %d", id, score)
		}
	}
	s := &Strategy{
		scores:       scores,
		regions:      regions,
		markerTarget: markerTarget,
		rng:          rand.New(rand.NewSource(rand.Int63())),
		logger:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SelectNext returns the target to pursue next. The result may be 0.
func (s *Strategy) SelectNext(active []int, region int) int {
	return s.Select(active, region).Target
}

// Select runs the base pick and, for contended sets, the region swap.
func (s *Strategy) Select(active []int, region int) Selection {
	sel := Selection{
		Active: append([]int(nil), active...),
		Region: region,
		Base:   s.scores.Best(active),
	}
	sel.Target = sel.Base
	if len(active) <= 1 {
		return sel
	}
	adj, ok := s.regions.Targets(region)
	if !ok {
		return sel
	}
	sel.Restrategized = true
	sel.Replacement = s.restrategize(sel.Base, adj)
	sel.Target = sel.Replacement
	s.logger.Infow("strategized target", "base", sel.Base, "region", region, "replacement", sel.Replacement)
	return sel
}

// restrategize scans the region list. A draw happens only on non-marker
// elements while the base is not the marker, and the scan stops on the first
// non-marker replacement, so the marker can still be returned when the last
// draw hit it.
func (s *Strategy) restrategize(base int, adj []int) int {
	replacement := 0
	for _, candidate := range adj {
		if base == s.markerTarget && candidate == s.markerTarget {
			return base
		}
		if base != s.markerTarget && candidate != s.markerTarget {
			replacement = adj[s.rng.Intn(len(adj))]
		}
		if replacement != s.markerTarget {
			break
		}
	}
	return replacement
}
