// Package follower tracks a device's live position against a previously
// computed route, reporting off-route status, progress, and proximity
// to the next turn instruction.
package follower

import (
	"math"
	"sync"

	"github.com/hherb/hikecore/pkg/geo"
	"github.com/hherb/hikecore/pkg/turns"
)

// Off-route hysteresis thresholds, in metres.
const (
	offRouteTrigger = 50.0
	offRouteClear   = 30.0

	approachingTurnDistance = 100.0
	atTurnDistance          = 30.0
	arrivalDistance         = 30.0
)

// NavigationState is the result of one Update call.
type NavigationState struct {
	DistanceFromRoute       float64
	OnRoute                 bool
	Progress                float64
	RemainingDistance       float64
	CurrentInstructionIndex int
	NextInstruction         *turns.Instruction
	DistanceToNextTurn      float64
	IsApproachingTurn       bool
	IsAtTurn                bool
	HasArrived              bool
}

// Follower holds the mutable state of one in-progress navigation. It is
// not thread-safe: Update must be called from a single task, matching
// the single-writer discipline of the instruction index and off-route
// latch it owns.
type Follower struct {
	mu sync.Mutex

	coordinates   []geo.Coordinate
	instructions  []turns.Instruction
	totalDistance float64

	degenerate bool

	currentIndex int
	onRoute      bool
}

// New constructs a Follower for a computed route. Degenerate inputs
// (zero-length route, no instructions, or a coincident start/end) make
// every subsequent Update return the default NavigationState.
func New(coordinates []geo.Coordinate, instructions []turns.Instruction, totalDistance float64) *Follower {
	degenerate := totalDistance <= 0 || len(instructions) == 0 || len(coordinates) < 2 ||
		(coordinates[0] == coordinates[len(coordinates)-1])

	return &Follower{
		coordinates:   coordinates,
		instructions:  instructions,
		totalDistance: totalDistance,
		degenerate:    degenerate,
		onRoute:       true,
	}
}

// Update reports the navigation state at (latitude, longitude), having
// walked walkedDistance metres along the route so far.
func (f *Follower) Update(latitude, longitude, walkedDistance float64) NavigationState {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.degenerate {
		return NavigationState{}
	}

	point := geo.Coordinate{Latitude: latitude, Longitude: longitude}
	distance := distanceFromRoute(f.coordinates, point)

	if f.onRoute && distance > offRouteTrigger {
		f.onRoute = false
	} else if !f.onRoute && distance <= offRouteClear {
		f.onRoute = true
	}

	progress := clamp(walkedDistance/f.totalDistance, 0, 1)
	remaining := math.Max(f.totalDistance-walkedDistance, 0)

	for f.currentIndex < len(f.instructions)-1 &&
		walkedDistance >= f.instructions[f.currentIndex].CumulativeDistance {
		f.currentIndex++
	}

	next := f.instructions[f.currentIndex]
	distanceAhead := math.Max(next.CumulativeDistance-walkedDistance, 0)

	last := f.coordinates[len(f.coordinates)-1]
	distanceToFinish := geo.HaversineDistance(point, last)

	state := NavigationState{
		DistanceFromRoute:       distance,
		OnRoute:                 f.onRoute,
		Progress:                progress,
		RemainingDistance:       remaining,
		CurrentInstructionIndex: f.currentIndex,
		NextInstruction:         &next,
		DistanceToNextTurn:      distanceAhead,
		IsApproachingTurn:       distanceAhead <= approachingTurnDistance,
		IsAtTurn:                distanceAhead <= atTurnDistance,
		HasArrived:              distanceToFinish <= arrivalDistance,
	}
	return state
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// distanceFromRoute returns the minimum perpendicular distance from
// point to any polyline segment of coordinates, using a local
// equirectangular projection centred on each segment (a Haversine
// approximation adequate at trail scale).
func distanceFromRoute(coordinates []geo.Coordinate, point geo.Coordinate) float64 {
	min := math.MaxFloat64
	for i := 1; i < len(coordinates); i++ {
		d := distanceToSegment(point, coordinates[i-1], coordinates[i])
		if d < min {
			min = d
		}
	}
	return min
}

const metresPerDegreeLatitude = 111_320.0

func localXY(origin, p geo.Coordinate) (x, y float64) {
	y = (p.Latitude - origin.Latitude) * metresPerDegreeLatitude
	x = (p.Longitude - origin.Longitude) * metresPerDegreeLatitude * math.Cos(origin.Latitude*math.Pi/180)
	return x, y
}

func distanceToSegment(p, a, b geo.Coordinate) float64 {
	px, py := localXY(a, p)
	bx, by := localXY(a, b)

	lenSq := bx*bx + by*by
	if lenSq == 0 {
		return math.Hypot(px, py)
	}

	t := (px*bx + py*by) / lenSq
	t = clamp(t, 0, 1)

	projX, projY := t*bx, t*by
	return math.Hypot(px-projX, py-projY)
}
