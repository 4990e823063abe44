package ndt

import (
	"encoding/json"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// DefaultTrackCapacity caps how many trajectory points are retained.
// Older points are discarded in blocks once the cap is exceeded.
const DefaultTrackCapacity = 10000

// trackDropBlock is how many points get dropped at once when full, so the
// slice is not reallocated on every pose at steady state.
const trackDropBlock = 1000

// Track records the robot trajectory in the map plane as it localizes.
// Safe for concurrent use: poses arrive from the consumer loop while HTTP
// handlers read snapshots.
type Track struct {
	mu         sync.RWMutex
	line       orb.LineString
	capacity   int
	minSpacing float64 // meters; poses closer than this to the last point are skipped
}

// NewTrack creates a trajectory recorder. minSpacing suppresses points
// closer than the given distance to the previous one (0 keeps everything).
func NewTrack(capacity int, minSpacing float64) *Track {
	if capacity <= 0 {
		capacity = DefaultTrackCapacity
	}
	return &Track{
		capacity:   capacity,
		minSpacing: minSpacing,
	}
}

// Add appends a pose position to the trajectory
func (t *Track) Add(x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := orb.Point{x, y}
	if t.minSpacing > 0 && len(t.line) > 0 {
		if planar.Distance(t.line[len(t.line)-1], p) < t.minSpacing {
			return
		}
	}

	t.line = append(t.line, p)
	if len(t.line) > t.capacity {
		drop := len(t.line) - t.capacity
		if drop < trackDropBlock {
			drop = trackDropBlock
		}
		if drop > len(t.line) {
			drop = len(t.line)
		}
		t.line = append(orb.LineString{}, t.line[drop:]...)
	}
}

// Len returns the number of recorded points
func (t *Track) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.line)
}

// Line returns a copy of the recorded trajectory
func (t *Track) Line() orb.LineString {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.line.Clone()
}

// Bound returns the bounding box of the trajectory
func (t *Track) Bound() orb.Bound {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.line.Bound()
}

// Reset clears the recorded trajectory
func (t *Track) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.line = nil
}

// trackFeature is the GeoJSON feature wrapper for export
type trackFeature struct {
	Type       string                 `json:"type"`
	Geometry   trackGeometry          `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type trackGeometry struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

type trackFeatureCollection struct {
	Type     string         `json:"type"`
	Features []trackFeature `json:"features"`
}

// GeoJSON exports the trajectory as a GeoJSON FeatureCollection holding one
// LineString feature, Douglas-Peucker simplified with the given tolerance
// in meters (0 exports every point). Coordinates are map-frame meters.
func (t *Track) GeoJSON(tolerance float64) ([]byte, error) {
	line := t.Line()
	if tolerance > 0 && len(line) > 2 {
		simplified := simplify.DouglasPeucker(tolerance).Simplify(line.Clone())
		if ls, ok := simplified.(orb.LineString); ok {
			line = ls
		}
	}

	coords := make([][2]float64, len(line))
	for i, p := range line {
		coords[i] = [2]float64{p[0], p[1]}
	}

	fc := trackFeatureCollection{
		Type: "FeatureCollection",
		Features: []trackFeature{{
			Type: "Feature",
			Geometry: trackGeometry{
				Type:        "LineString",
				Coordinates: coords,
			},
			Properties: map[string]interface{}{
				"name":   "localization-track",
				"points": len(coords),
			},
		}},
	}
	return json.Marshal(fc)
}
