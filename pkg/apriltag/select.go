package apriltag

// SelectBest picks the observation to publish when a frame holds several tags.
// Priority: largest corner-polygon area (closest or most head-on tag), then
// higher decision margin, then lower id. The result does not depend on the
// order the detector returned the observations in.
// Returns -1 for an empty slice.
func SelectBest(obs []Observation) int {
	best := -1
	var bestArea float64

	for i := range obs {
		area := obs[i].Area()
		if best < 0 || better(obs[i], area, obs[best], bestArea) {
			best = i
			bestArea = area
		}
	}

	return best
}

func better(o Observation, area float64, cur Observation, curArea float64) bool {
	if area != curArea {
		return area > curArea
	}
	if o.DecisionMargin != cur.DecisionMargin {
		return o.DecisionMargin > cur.DecisionMargin
	}
	return o.ID < cur.ID
}
