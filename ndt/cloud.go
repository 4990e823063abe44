package ndt

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultMaxDisplayPoints caps how many points the renderers are asked to
// draw; larger clouds are randomly downsampled first.
const DefaultMaxDisplayPoints = 50000

// Cloud is an in-memory point cloud
type Cloud struct {
	Points []Point3
}

// LoadCloud reads a point cloud from disk. Supported formats: ASCII PCD,
// ASCII PLY, and plain XYZ/TXT (first three whitespace-separated columns).
// Binary PCD/PLY payloads are rejected with ErrUnsupportedFormat.
func LoadCloud(path string) (*Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cloud file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcd":
		return parsePCD(f)
	case ".ply":
		return parsePLY(f)
	case ".xyz", ".txt":
		return parseXYZ(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func parsePCD(f *os.File) (*Cloud, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	xi, yi, zi := 0, 1, 2
	inHeader := true
	cloud := &Cloud{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if inHeader {
			fields := strings.Fields(line)
			switch strings.ToUpper(fields[0]) {
			case "FIELDS":
				for i, name := range fields[1:] {
					switch strings.ToLower(name) {
					case "x":
						xi = i
					case "y":
						yi = i
					case "z":
						zi = i
					}
				}
			case "DATA":
				if len(fields) < 2 || strings.ToLower(fields[1]) != "ascii" {
					return nil, fmt.Errorf("%w: binary PCD", ErrUnsupportedFormat)
				}
				inHeader = false
			}
			continue
		}

		p, ok := parsePointFields(strings.Fields(line), xi, yi, zi)
		if ok {
			cloud.Points = append(cloud.Points, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading PCD: %w", err)
	}
	if inHeader {
		return nil, fmt.Errorf("%w: PCD header missing DATA section", ErrUnsupportedFormat)
	}
	return cloud, nil
}

func parsePLY(f *os.File) (*Cloud, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "ply" {
		return nil, fmt.Errorf("%w: missing ply magic", ErrUnsupportedFormat)
	}

	vertexCount := -1
	inHeader := true
	for inHeader && scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 2 || fields[1] != "ascii" {
				return nil, fmt.Errorf("%w: binary PLY", ErrUnsupportedFormat)
			}
		case "element":
			if len(fields) >= 3 && fields[1] == "vertex" {
				n, err := strconv.Atoi(fields[2])
				if err != nil {
					return nil, fmt.Errorf("%w: bad vertex count", ErrUnsupportedFormat)
				}
				vertexCount = n
			}
		case "end_header":
			inHeader = false
		}
	}
	if inHeader || vertexCount < 0 {
		return nil, fmt.Errorf("%w: malformed PLY header", ErrUnsupportedFormat)
	}

	cloud := &Cloud{Points: make([]Point3, 0, vertexCount)}
	for len(cloud.Points) < vertexCount && scanner.Scan() {
		p, ok := parsePointFields(strings.Fields(scanner.Text()), 0, 1, 2)
		if ok {
			cloud.Points = append(cloud.Points, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading PLY: %w", err)
	}
	return cloud, nil
}

func parseXYZ(f *os.File) (*Cloud, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	cloud := &Cloud{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		p, ok := parsePointFields(strings.Fields(line), 0, 1, 2)
		if ok {
			cloud.Points = append(cloud.Points, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading XYZ: %w", err)
	}
	return cloud, nil
}

// parsePointFields pulls x/y/z out of a row at the given column indices.
// Rows with too few columns or non-numeric values are skipped.
func parsePointFields(fields []string, xi, yi, zi int) (Point3, bool) {
	max := xi
	if yi > max {
		max = yi
	}
	if zi > max {
		max = zi
	}
	if len(fields) <= max {
		return Point3{}, false
	}
	x, errX := strconv.ParseFloat(fields[xi], 64)
	y, errY := strconv.ParseFloat(fields[yi], 64)
	z, errZ := strconv.ParseFloat(fields[zi], 64)
	if errX != nil || errY != nil || errZ != nil {
		return Point3{}, false
	}
	return Point3{X: x, Y: y, Z: z}, true
}

// Len returns the number of points
func (c *Cloud) Len() int { return len(c.Points) }

// Bounds returns the axis-aligned bounding box of the cloud. Zero values
// for an empty cloud.
func (c *Cloud) Bounds() (min, max Point3) {
	if len(c.Points) == 0 {
		return Point3{}, Point3{}
	}
	min = c.Points[0]
	max = c.Points[0]
	for _, p := range c.Points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	return min, max
}

// Centroid returns the arithmetic mean of all points
func (c *Cloud) Centroid() Point3 {
	if len(c.Points) == 0 {
		return Point3{}
	}
	var sum Point3
	for _, p := range c.Points {
		sum.X += p.X
		sum.Y += p.Y
		sum.Z += p.Z
	}
	n := float64(len(c.Points))
	return Point3{X: sum.X / n, Y: sum.Y / n, Z: sum.Z / n}
}

// Downsample returns a cloud with at most max points, picked as a uniform
// random subset. Clouds already under the cap are returned unchanged.
func (c *Cloud) Downsample(max int, rng *rand.Rand) *Cloud {
	if max <= 0 || len(c.Points) <= max {
		return c
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	// Partial Fisher-Yates: the first max slots end up a uniform sample.
	points := make([]Point3, len(c.Points))
	copy(points, c.Points)
	for i := 0; i < max; i++ {
		j := i + rng.Intn(len(points)-i)
		points[i], points[j] = points[j], points[i]
	}
	return &Cloud{Points: points[:max]}
}

// SampleCloud generates a synthetic demo cloud (a scattered blob, a ground
// plane, and a wall slab) used when no map file is configured.
func SampleCloud(n int, rng *rand.Rand) *Cloud {
	if n <= 0 {
		n = 1000
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	cloud := &Cloud{Points: make([]Point3, 0, 3*n)}

	// Scattered blob around the origin
	for i := 0; i < n; i++ {
		cloud.Points = append(cloud.Points, Point3{
			X: rng.NormFloat64() * 10,
			Y: rng.NormFloat64() * 10,
			Z: rng.NormFloat64() * 2,
		})
	}
	// Ground plane
	for i := 0; i < n; i++ {
		cloud.Points = append(cloud.Points, Point3{
			X: (rng.Float64() - 0.5) * 60,
			Y: (rng.Float64() - 0.5) * 60,
			Z: rng.Float64() * 0.1,
		})
	}
	// Wall slab along one edge
	for i := 0; i < n; i++ {
		cloud.Points = append(cloud.Points, Point3{
			X: 30 + rng.Float64()*0.5,
			Y: (rng.Float64() - 0.5) * 60,
			Z: rng.Float64() * 5,
		})
	}
	return cloud
}
