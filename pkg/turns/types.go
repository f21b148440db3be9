// Package turns converts a routing node/edge chain into a sequence of
// turn-by-turn instructions, classifying each interior node by the
// bearing change between its incoming and outgoing edges.
package turns

import "github.com/hherb/hikecore/pkg/geo"

// Direction classifies a single turn instruction.
type Direction string

const (
	Start      Direction = "START"
	Straight   Direction = "STRAIGHT"
	Left       Direction = "LEFT"
	Right      Direction = "RIGHT"
	SharpLeft  Direction = "SHARP_LEFT"
	SharpRight Direction = "SHARP_RIGHT"
	UTurn      Direction = "U_TURN"
	Arrive     Direction = "ARRIVE"
)

// Instruction is one turn-by-turn step.
type Instruction struct {
	Direction            Direction
	NodeIndex            int // index into the route's node slice
	Coordinate           geo.Coordinate
	BearingDeg           float64
	CumulativeDistance   float64
	DistanceFromPrevious float64
	TrailName            string
	Description          string
}

// classificationThresholds are the |delta| boundaries (in degrees)
// separating STRAIGHT / LEFT-RIGHT / SHARP_LEFT-SHARP_RIGHT / U_TURN.
const (
	straightThreshold = 20.0
	sharpThreshold    = 120.0
	uTurnThreshold    = 160.0
)

func classify(delta float64) Direction {
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < straightThreshold:
		return Straight
	case abs < sharpThreshold:
		if delta < 0 {
			return Left
		}
		return Right
	case abs < uTurnThreshold:
		if delta < 0 {
			return SharpLeft
		}
		return SharpRight
	default:
		return UTurn
	}
}
