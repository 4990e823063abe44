package ndt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack_AddAndLine(t *testing.T) {
	track := NewTrack(100, 0)
	track.Add(0, 0)
	track.Add(1, 1)
	track.Add(2, 1.5)

	line := track.Line()
	require.Len(t, line, 3)
	assert.Equal(t, 2.0, line[2][0])
	assert.Equal(t, 1.5, line[2][1])
}

func TestTrack_MinSpacingSkipsJitter(t *testing.T) {
	track := NewTrack(100, 0.5)
	track.Add(0, 0)
	track.Add(0.1, 0.1) // closer than 0.5m to previous, skipped
	track.Add(1, 0)

	assert.Equal(t, 2, track.Len())
}

func TestTrack_CapacityTrimsOldest(t *testing.T) {
	track := NewTrack(1500, 0)
	for i := 0; i < 2000; i++ {
		track.Add(float64(i), 0)
	}

	assert.LessOrEqual(t, track.Len(), 1500)
	line := track.Line()
	// Newest point always survives trimming
	assert.Equal(t, 1999.0, line[len(line)-1][0])
}

func TestTrack_Bound(t *testing.T) {
	track := NewTrack(10, 0)
	track.Add(-1, 4)
	track.Add(3, -2)

	bound := track.Bound()
	assert.Equal(t, -1.0, bound.Min[0])
	assert.Equal(t, -2.0, bound.Min[1])
	assert.Equal(t, 3.0, bound.Max[0])
	assert.Equal(t, 4.0, bound.Max[1])
}

func TestTrack_Reset(t *testing.T) {
	track := NewTrack(10, 0)
	track.Add(1, 1)
	track.Reset()
	assert.Equal(t, 0, track.Len())
}

func TestTrack_GeoJSON(t *testing.T) {
	track := NewTrack(100, 0)
	track.Add(0, 0)
	track.Add(5, 0)
	track.Add(10, 10)

	data, err := track.GeoJSON(0)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string       `json:"type"`
				Coordinates [][2]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
	assert.Len(t, fc.Features[0].Geometry.Coordinates, 3)
}

func TestTrack_GeoJSONSimplified(t *testing.T) {
	track := NewTrack(1000, 0)
	// A straight line with dense collinear samples collapses under
	// Douglas-Peucker
	for i := 0; i <= 100; i++ {
		track.Add(float64(i)*0.1, 0)
	}

	data, err := track.GeoJSON(0.5)
	require.NoError(t, err)

	var fc struct {
		Features []struct {
			Geometry struct {
				Coordinates [][2]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Less(t, len(fc.Features[0].Geometry.Coordinates), 101)
}
