// Package cost implements the pure edge-cost function the graph builder
// and routing engine share: a deterministic mapping from an edge's
// physical and tag attributes to a traversal time in seconds.
package cost

// ModelVersion is recorded in routing_metadata so two graph builds can be
// compared for cost-model compatibility.
const ModelVersion = "v1"

// Mode is an activity the cost model can compute a duration for.
type Mode string

const (
	Hiking  Mode = "hiking"
	Cycling Mode = "cycling"
)

// InfinityThreshold is the cost, in seconds, at or above which the
// routing engine treats an edge as impassable. A oneway edge stores this
// value as its reverse_cost rather than an actual infinity, so it
// survives a round trip through a float64 database column.
const InfinityThreshold = 1e12

// baseSpeedMPS is the flat-ground cruising speed for each mode, in
// metres per second.
var baseSpeedMPS = map[Mode]float64{
	Hiking:  1.33, // ~4.8 km/h
	Cycling: 4.17, // ~15 km/h
}

// BaseSpeed returns the mode's flat-ground speed in metres per second.
func BaseSpeed(mode Mode) float64 {
	if v, ok := baseSpeedMPS[mode]; ok {
		return v
	}
	return baseSpeedMPS[Hiking]
}

// surfaceMultiplier scales the base speed by surface for each mode.
// Unknown surfaces default to 1.0 for hiking (most informal surfaces
// cost walkers little) and 1.3 for cycling (unknown surfaces are
// conservatively assumed rougher than pavement for a bike).
var surfaceMultiplier = map[Mode]map[string]float64{
	Hiking: {
		"paved":        1.0,
		"asphalt":      1.0,
		"concrete":     1.0,
		"gravel":       1.05,
		"fine_gravel":  1.05,
		"compacted":    1.0,
		"dirt":         1.1,
		"ground":       1.1,
		"grass":        1.15,
		"sand":         1.4,
		"mud":          1.6,
		"rock":         1.3,
		"wood":         1.0,
	},
	Cycling: {
		"paved":       1.0,
		"asphalt":     1.0,
		"concrete":    1.0,
		"gravel":      1.3,
		"fine_gravel": 1.2,
		"compacted":   1.1,
		"dirt":        1.6,
		"ground":      1.7,
		"grass":       2.0,
		"sand":        3.0,
		"mud":         3.5,
		"rock":        2.5,
		"wood":        1.2,
	},
}

func surfaceFactor(mode Mode, surface string) float64 {
	table := surfaceMultiplier[mode]
	if table == nil {
		return 1.0
	}
	if v, ok := table[surface]; ok {
		return v
	}
	if mode == Cycling {
		return 1.3
	}
	return 1.0
}

// sacScaleMultiplier scales hiking cost by the SAC hiking scale. Cycling
// is unaffected since bicycle routing doesn't traverse sac_scale-tagged
// alpine terrain in practice; the table is only consulted for Hiking.
var sacScaleMultiplier = map[string]float64{
	"hiking":                    1.0,
	"mountain_hiking":           1.3,
	"demanding_mountain_hiking": 1.8,
	"alpine_hiking":             2.3,
	"demanding_alpine_hiking":   3.2,
	"difficult_alpine_hiking":   4.0,
}

// naismithClimbSecondsPerMetre is Naismith's rule expressed in seconds of
// extra time per metre of ascent, per mode.
var naismithClimbSecondsPerMetre = map[Mode]float64{
	Hiking:  7.92,  // about +1h per 455m climbed (3600s / 7.92 s/m)
	Cycling: 12.0,  // climbing costs a cyclist proportionally more
}

// descentBand is one row of the banded descent-penalty table: grade is
// the lower (inclusive) bound of elevation_loss/distance and
// secondsPerMetre is the extra seconds charged per metre of descent once
// the grade reaches that band.
type descentBand struct {
	gradeLowerBound float64
	secondsPerMetre float64
}

// descentBands implements the steep-descent penalty: gentle descents are
// free or even faster than flat ground in practice, but once a trail gets
// steep enough descending costs time too (careful footing, braking).
// Bands are non-decreasing in secondsPerMetre by construction.
var descentBands = []descentBand{
	{gradeLowerBound: 0.00, secondsPerMetre: 0.0},
	{gradeLowerBound: 0.05, secondsPerMetre: 0.5},
	{gradeLowerBound: 0.15, secondsPerMetre: 1.2},
	{gradeLowerBound: 0.25, secondsPerMetre: 2.5},
}

func descentPenaltySeconds(distance, elevationLoss float64) float64 {
	if distance <= 0 || elevationLoss <= 0 {
		return 0
	}
	grade := elevationLoss / distance
	rate := descentBands[0].secondsPerMetre
	for _, b := range descentBands {
		if grade >= b.gradeLowerBound {
			rate = b.secondsPerMetre
		}
	}
	return rate * elevationLoss
}

// stepsPenaltySecondsPerMetre adds a flat per-metre penalty to the
// "steps" highway value, reflecting the slower, more careful movement
// steps require over and above their surface/climb contribution.
const stepsPenaltySecondsPerMetre = 1.5

// Input collects every attribute EdgeCost needs.
type Input struct {
	Distance        float64 // metres, > 0
	ElevationGain   float64 // metres, >= 0
	ElevationLoss   float64 // metres, >= 0
	Surface         string
	Highway         string
	SacScale        string
	Mode            Mode
}

// EdgeCost computes the traversal time, in seconds, for one directed edge
// under the given mode. It is a pure function: identical inputs always
// produce an identical result.
func EdgeCost(in Input) float64 {
	speed := BaseSpeed(in.Mode) / surfaceFactor(in.Mode, in.Surface)
	seconds := in.Distance / speed

	climbRate := naismithClimbSecondsPerMetre[in.Mode]
	seconds += climbRate * in.ElevationGain

	seconds += descentPenaltySeconds(in.Distance, in.ElevationLoss)

	if in.Mode == Hiking && in.SacScale != "" {
		if mult, ok := sacScaleMultiplier[in.SacScale]; ok {
			seconds *= mult
		}
	}

	if in.Highway == "steps" {
		seconds += stepsPenaltySecondsPerMetre * in.Distance
	}

	return seconds
}
