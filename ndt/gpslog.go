package ndt

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LatestFileName is the single-record snapshot written next to the
// append-only coordinate log.
const LatestFileName = "latest_gps.txt"

const gpsTimeLayout = "2006-01-02 15:04:05"

// GPSRecord is one saved coordinate fix. Lon/lat in degrees, alt in meters,
// roll/pitch/yaw in degrees.
type GPSRecord struct {
	Timestamp time.Time
	Lon       float64
	Lat       float64
	Alt       float64
	Roll      float64
	Pitch     float64
	Yaw       float64
}

// AppendRecord appends one tab-separated record to the coordinate log at
// path and rewrites the latest-snapshot file alongside it. The log line is
// `timestamp\tlon\tlat\talt\troll\tpitch\tyaw`.
func AppendRecord(path string, rec GPSRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening coordinate log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s\t%.8f\t%.8f\t%.3f\t%.2f\t%.2f\t%.2f\n",
		rec.Timestamp.Format(gpsTimeLayout),
		rec.Lon, rec.Lat, rec.Alt, rec.Roll, rec.Pitch, rec.Yaw)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending coordinate record: %w", err)
	}

	return writeLatest(filepath.Join(dir, LatestFileName), rec)
}

// writeLatest rewrites the snapshot file as key: value lines
func writeLatest(path string, rec GPSRecord) error {
	var b strings.Builder
	fmt.Fprintf(&b, "timestamp: %s\n", rec.Timestamp.Format(gpsTimeLayout))
	fmt.Fprintf(&b, "lon: %.8f\n", rec.Lon)
	fmt.Fprintf(&b, "lat: %.8f\n", rec.Lat)
	fmt.Fprintf(&b, "alt: %.3f\n", rec.Alt)
	fmt.Fprintf(&b, "roll: %.2f\n", rec.Roll)
	fmt.Fprintf(&b, "pitch: %.2f\n", rec.Pitch)
	fmt.Fprintf(&b, "yaw: %.2f\n", rec.Yaw)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing latest snapshot: %w", err)
	}
	return nil
}

// ReadLatest loads the latest-snapshot record from the directory holding
// the coordinate log. The second return value is false when no snapshot
// exists yet.
func ReadLatest(dir string) (GPSRecord, bool, error) {
	f, err := os.Open(filepath.Join(dir, LatestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return GPSRecord{}, false, nil
		}
		return GPSRecord{}, false, fmt.Errorf("opening latest snapshot: %w", err)
	}
	defer f.Close()

	var rec GPSRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "timestamp":
			if ts, err := time.ParseInLocation(gpsTimeLayout, value, time.Local); err == nil {
				rec.Timestamp = ts
			}
		case "lon":
			rec.Lon, _ = strconv.ParseFloat(value, 64)
		case "lat":
			rec.Lat, _ = strconv.ParseFloat(value, 64)
		case "alt":
			rec.Alt, _ = strconv.ParseFloat(value, 64)
		case "roll":
			rec.Roll, _ = strconv.ParseFloat(value, 64)
		case "pitch":
			rec.Pitch, _ = strconv.ParseFloat(value, 64)
		case "yaw":
			rec.Yaw, _ = strconv.ParseFloat(value, 64)
		}
	}
	if err := scanner.Err(); err != nil {
		return GPSRecord{}, false, fmt.Errorf("reading latest snapshot: %w", err)
	}
	return rec, true, nil
}
