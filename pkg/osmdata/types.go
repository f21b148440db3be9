// Package osmdata parses OpenStreetMap extracts into the narrow node/way
// shape the graph builder consumes: raw coordinates plus a filtered set
// of routing-relevant tags.
package osmdata

import "github.com/paulmach/orb"

// Node is a single OSM node: an id and a point.
type Node struct {
	ID    int64
	Point orb.Point // [lon, lat]
}

// Tags holds the routing-relevant subset of an OSM way's tag map. Any tag
// not named here is dropped during ingest; the core never carries
// arbitrary tag maps downstream.
type Tags struct {
	Highway         string
	Surface         string
	SacScale        string
	TrailVisibility string
	Name            string
	Oneway          bool
}

// Way is an OSM way: an ordered list of node references and its filtered
// tags.
type Way struct {
	ID       int64
	NodeRefs []int64
	Tags     Tags
}

// relevantHighways is the admissible set of highway values the graph
// builder retains; ways tagged with any other highway value (or untagged)
// are dropped during ingest.
var relevantHighways = map[string]bool{
	"path":          true,
	"footway":       true,
	"track":         true,
	"bridleway":     true,
	"steps":         true,
	"cycleway":      true,
	"residential":   true,
	"unclassified":  true,
	"tertiary":      true,
	"secondary":     true,
	"service":       true,
	"living_street": true,
	"pedestrian":    true,
}

// IsRoutable reports whether a way's highway tag is one the graph builder
// retains.
func IsRoutable(highway string) bool {
	return relevantHighways[highway]
}

func parseTags(raw map[string]string) Tags {
	return Tags{
		Highway:         raw["highway"],
		Surface:         raw["surface"],
		SacScale:        raw["sac_scale"],
		TrailVisibility: raw["trail_visibility"],
		Name:            raw["name"],
		Oneway:          isOnewayValue(raw["oneway"]),
	}
}

func isOnewayValue(v string) bool {
	return v == "yes" || v == "true" || v == "1"
}
