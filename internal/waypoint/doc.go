// Package waypoint holds the immutable registry of navigable poses used by a
// mission. Waypoints reference each other through parent ids; the graph is
// built in two passes so records can be declared in any order, and parent
// references are resolved into arena indexes once the whole table is known.
package waypoint
