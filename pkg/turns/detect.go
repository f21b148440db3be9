package turns

import (
	"fmt"

	"github.com/hherb/hikecore/pkg/geo"
	"github.com/hherb/hikecore/pkg/graph"
)

// Detect walks nodes and edges (as returned by a routing engine's
// ComputedRoute, len(nodes) == len(edges)+1) and emits a START
// instruction, one instruction per interior node that isn't suppressed,
// and an ARRIVE instruction. Routes with fewer than two nodes produce no
// instructions.
func Detect(nodes []graph.RoutingNode, edges []graph.RoutingEdge) []Instruction {
	if len(nodes) < 2 {
		return nil
	}

	coord := func(n graph.RoutingNode) geo.Coordinate {
		return geo.Coordinate{Latitude: n.Latitude, Longitude: n.Longitude}
	}

	var instructions []Instruction
	cumulative := 0.0

	startBearing := geo.InitialBearing(coord(nodes[0]), coord(nodes[1]))
	instructions = append(instructions, Instruction{
		Direction:   Start,
		NodeIndex:   0,
		Coordinate:  coord(nodes[0]),
		BearingDeg:  startBearing,
		TrailName:   edges[0].Name,
		Description: startDescription(edges[0].Name),
	})

	last := instructions[0]

	for i := 1; i <= len(nodes)-2; i++ {
		cumulative += edges[i-1].Distance

		incoming := geo.InitialBearing(coord(nodes[i-1]), coord(nodes[i]))
		outgoing := geo.InitialBearing(coord(nodes[i]), coord(nodes[i+1]))
		delta := geo.NormalizeAngleDelta(outgoing - incoming)
		direction := classify(delta)

		trailChanged := edges[i-1].Name != edges[i].Name
		if direction == Straight && !trailChanged {
			continue
		}

		instr := Instruction{
			Direction:            direction,
			NodeIndex:            i,
			Coordinate:           coord(nodes[i]),
			BearingDeg:           outgoing,
			CumulativeDistance:   cumulative,
			DistanceFromPrevious: cumulative - last.CumulativeDistance,
			TrailName:            edges[i].Name,
			Description:          turnDescription(direction, edges[i].Name),
		}
		instructions = append(instructions, instr)
		last = instr
	}

	finalCumulative := cumulative + edges[len(edges)-1].Distance
	instructions = append(instructions, Instruction{
		Direction:            Arrive,
		NodeIndex:            len(nodes) - 1,
		Coordinate:           coord(nodes[len(nodes)-1]),
		CumulativeDistance:   finalCumulative,
		DistanceFromPrevious: finalCumulative - last.CumulativeDistance,
		Description:          "Arrive at destination",
	})

	return instructions
}

func startDescription(trailName string) string {
	if trailName == "" {
		return "Start"
	}
	return fmt.Sprintf("Start on %s", trailName)
}

func turnDescription(d Direction, trailName string) string {
	verb := map[Direction]string{
		Straight:   "Continue straight",
		Left:       "Turn left",
		Right:      "Turn right",
		SharpLeft:  "Turn sharp left",
		SharpRight: "Turn sharp right",
		UTurn:      "Make a U-turn",
	}[d]
	if trailName == "" {
		return verb
	}
	return fmt.Sprintf("%s onto %s", verb, trailName)
}
