package navigation

// NoMarkerContent is reported when the marker was never decoded.
const NoMarkerContent = "No QR Content could be found."

// Log is the mutable mission state the executor maintains while traveling.
type Log struct {
	Visited       []int  `json:"visited"`
	CurrentRegion int    `json:"current_region"`
	MarkerContent string `json:"marker_content"`
	MarkerDecoded bool   `json:"marker_decoded"`
}

func newLog() Log {
	return Log{MarkerContent: NoMarkerContent}
}

// LastVisited returns the most recently inspected target.
func (l Log) LastVisited() (int, bool) {
	if len(l.Visited) == 0 {
		return 0, false
	}
	return l.Visited[len(l.Visited)-1], true
}

func (l Log) clone() Log {
	out := l
	if len(l.Visited) > 0 {
		out.Visited = append([]int(nil), l.Visited...)
	}
	return out
}
