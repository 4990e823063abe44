package ndt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() GPSRecord {
	return GPSRecord{
		Timestamp: time.Date(2025, 6, 15, 10, 30, 0, 0, time.Local),
		Lon:       120.12345678,
		Lat:       30.87654321,
		Alt:       15.25,
		Roll:      1.5,
		Pitch:     -0.75,
		Yaw:       90.0,
	}
}

func TestAppendRecord_WritesTSVLine(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "gps_coordinates.txt")

	require.NoError(t, AppendRecord(logPath, testRecord()))

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	line := strings.TrimSuffix(string(data), "\n")
	fields := strings.Split(line, "\t")
	require.Len(t, fields, 7)
	assert.Equal(t, "2025-06-15 10:30:00", fields[0])
	assert.Equal(t, "120.12345678", fields[1])
	assert.Equal(t, "30.87654321", fields[2])
	assert.Equal(t, "15.250", fields[3])
	assert.Equal(t, "90.00", fields[6])
}

func TestAppendRecord_Appends(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "gps_coordinates.txt")

	require.NoError(t, AppendRecord(logPath, testRecord()))
	require.NoError(t, AppendRecord(logPath, testRecord()))

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestAppendRecord_RewritesLatestSnapshot(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "gps_coordinates.txt")

	first := testRecord()
	require.NoError(t, AppendRecord(logPath, first))

	second := testRecord()
	second.Lon = 121.0
	require.NoError(t, AppendRecord(logPath, second))

	data, err := os.ReadFile(filepath.Join(dir, LatestFileName))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "lon: 121.00000000")
	assert.NotContains(t, content, "120.12345678", "snapshot holds only the latest record")
}

func TestReadLatest_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "gps_coordinates.txt")
	rec := testRecord()

	require.NoError(t, AppendRecord(logPath, rec))

	got, ok, err := ReadLatest(dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Timestamp.Unix(), got.Timestamp.Unix())
	assert.InDelta(t, rec.Lon, got.Lon, 1e-8)
	assert.InDelta(t, rec.Lat, got.Lat, 1e-8)
	assert.InDelta(t, rec.Alt, got.Alt, 1e-3)
	assert.InDelta(t, rec.Yaw, got.Yaw, 1e-2)
}

func TestReadLatest_Missing(t *testing.T) {
	_, ok, err := ReadLatest(t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendRecord_CreatesDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "dir", "gps_coordinates.txt")
	require.NoError(t, AppendRecord(logPath, testRecord()))

	_, err := os.Stat(logPath)
	assert.NoError(t, err)
}
