// Package scoring derives proximity and amenity scores for a listing from
// its resolved coordinates, using an embedded landmark dataset.
package scoring

import (
	_ "embed"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed landmarks.yaml
var landmarksYAML []byte

type Landmark struct {
	Kind string  `yaml:"kind"`
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

type dataset struct {
	Landmarks []Landmark `yaml:"landmarks"`
}

// Proximity is the nearest landmark of one kind plus its derived score.
type Proximity struct {
	Kind       string
	Name       string
	DistanceKm float64
	Score      float64
}

type Scorer struct {
	landmarks []Landmark
}

func NewScorer() (*Scorer, error) {
	var ds dataset
	if err := yaml.Unmarshal(landmarksYAML, &ds); err != nil {
		return nil, fmt.Errorf("decode landmark dataset: %w", err)
	}
	if len(ds.Landmarks) == 0 {
		return nil, fmt.Errorf("landmark dataset is empty")
	}
	return &Scorer{landmarks: ds.Landmarks}, nil
}

// Score computes one Proximity per landmark kind, nearest first.
func (s *Scorer) Score(lat, lng float64) []Proximity {
	nearest := make(map[string]Proximity)
	for _, lm := range s.landmarks {
		d := haversineKm(lat, lng, lm.Lat, lm.Lng)
		cur, ok := nearest[lm.Kind]
		if !ok || d < cur.DistanceKm {
			nearest[lm.Kind] = Proximity{
				Kind:       lm.Kind,
				Name:       lm.Name,
				DistanceKm: round2(d),
				Score:      scoreForDistance(lm.Kind, d),
			}
		}
	}

	out := make([]Proximity, 0, len(nearest))
	for _, p := range nearest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// scoreForDistance maps distance bands to a 0-10 score. Beaches matter at a
// finer scale than the airport.
func scoreForDistance(kind string, km float64) float64 {
	full := 1.0  // distance that still scores 10
	zero := 15.0 // distance at which the score bottoms out
	if kind == "airport" {
		full, zero = 5.0, 45.0
	}
	switch {
	case km <= full:
		return 10
	case km >= zero:
		return 0
	default:
		return round1(10 * (zero - km) / (zero - full))
	}
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
