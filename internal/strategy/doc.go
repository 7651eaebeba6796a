// Package strategy picks the next inspection target. A base pick takes the
// highest-scoring active target; when several targets are active the pick may
// be swapped for a random target of the robot's current region to save travel
// time. The swap is deliberately randomized and may return 0, which callers
// treat as "no replacement".
package strategy
