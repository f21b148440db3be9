package turns

import (
	"math"
	"testing"

	"github.com/hherb/hikecore/pkg/geo"
	"github.com/hherb/hikecore/pkg/graph"
)

func makeEdge(from, to graph.RoutingNode, name string) graph.RoutingEdge {
	return graph.RoutingEdge{
		FromNode: from.ID,
		ToNode:   to.ID,
		Distance: geo.HaversineDistance(
			geo.Coordinate{Latitude: from.Latitude, Longitude: from.Longitude},
			geo.Coordinate{Latitude: to.Latitude, Longitude: to.Longitude}),
		Name: name,
	}
}

func TestDetectRightAngleRoute(t *testing.T) {
	nodes := []graph.RoutingNode{
		{ID: 1, Latitude: 0.000, Longitude: 0.000},
		{ID: 2, Latitude: 0.010, Longitude: 0.000}, // due north of node 1
		{ID: 3, Latitude: 0.010, Longitude: 0.010}, // due east of node 2
	}
	edges := []graph.RoutingEdge{
		makeEdge(nodes[0], nodes[1], "Trail"),
		makeEdge(nodes[1], nodes[2], "Trail"),
	}

	instructions := Detect(nodes, edges)
	if len(instructions) != 3 {
		t.Fatalf("len(instructions) = %d, want 3 (START, RIGHT, ARRIVE)", len(instructions))
	}

	if instructions[0].Direction != Start {
		t.Errorf("instructions[0].Direction = %s, want START", instructions[0].Direction)
	}
	if math.Abs(instructions[0].BearingDeg-0) > 1 {
		t.Errorf("START bearing = %f, want ~0", instructions[0].BearingDeg)
	}

	if instructions[1].Direction != Right {
		t.Errorf("instructions[1].Direction = %s, want RIGHT", instructions[1].Direction)
	}
	if math.Abs(instructions[1].BearingDeg-90) > 1 {
		t.Errorf("RIGHT bearing = %f, want ~90", instructions[1].BearingDeg)
	}

	if instructions[2].Direction != Arrive {
		t.Errorf("instructions[2].Direction = %s, want ARRIVE", instructions[2].Direction)
	}
}

func TestDetectStraightSuppressedWithoutTrailChange(t *testing.T) {
	nodes := []graph.RoutingNode{
		{ID: 1, Latitude: 0.000, Longitude: 0.000},
		{ID: 2, Latitude: 0.010, Longitude: 0.000},
		{ID: 3, Latitude: 0.020, Longitude: 0.0001}, // nearly straight on
	}
	edges := []graph.RoutingEdge{
		makeEdge(nodes[0], nodes[1], "Same Trail"),
		makeEdge(nodes[1], nodes[2], "Same Trail"),
	}

	instructions := Detect(nodes, edges)
	if len(instructions) != 2 {
		t.Fatalf("len(instructions) = %d, want 2 (START, ARRIVE; straight suppressed)", len(instructions))
	}
}

func TestDetectStraightEmittedOnTrailNameChange(t *testing.T) {
	nodes := []graph.RoutingNode{
		{ID: 1, Latitude: 0.000, Longitude: 0.000},
		{ID: 2, Latitude: 0.010, Longitude: 0.000},
		{ID: 3, Latitude: 0.020, Longitude: 0.0001},
	}
	edges := []graph.RoutingEdge{
		makeEdge(nodes[0], nodes[1], "First Trail"),
		makeEdge(nodes[1], nodes[2], "Second Trail"),
	}

	instructions := Detect(nodes, edges)
	if len(instructions) != 3 {
		t.Fatalf("len(instructions) = %d, want 3 (name change forces a STRAIGHT instruction)", len(instructions))
	}
	if instructions[1].Direction != Straight {
		t.Errorf("instructions[1].Direction = %s, want STRAIGHT", instructions[1].Direction)
	}
}

func TestDetectUTurn(t *testing.T) {
	nodes := []graph.RoutingNode{
		{ID: 1, Latitude: 0.000, Longitude: 0.000},
		{ID: 2, Latitude: 0.010, Longitude: 0.000},
		{ID: 3, Latitude: 0.000, Longitude: 0.000001}, // back near the start
	}
	edges := []graph.RoutingEdge{
		makeEdge(nodes[0], nodes[1], "Trail"),
		makeEdge(nodes[1], nodes[2], "Trail"),
	}

	instructions := Detect(nodes, edges)
	if len(instructions) != 3 || instructions[1].Direction != UTurn {
		t.Fatalf("instructions = %+v, want [START U_TURN ARRIVE]", instructions)
	}
}

func TestDetectShortRouteProducesNoInstructions(t *testing.T) {
	nodes := []graph.RoutingNode{{ID: 1, Latitude: 0, Longitude: 0}}
	if got := Detect(nodes, nil); got != nil {
		t.Errorf("Detect on a single-node route = %+v, want nil", got)
	}
}
