// Package navigation moves the robot between waypoints. It walks a target's
// parent chain before and after the visit, performs the inspection or marker
// read requested at the target, and retries failed pose commands a bounded
// number of times without ever failing the caller.
package navigation
