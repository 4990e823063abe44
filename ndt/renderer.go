package ndt

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CloudRenderer draws a top-down orthographic projection of a point cloud
// with a height-based color ramp, plus the robot pose and its trajectory.
type CloudRenderer struct {
	Cloud     *Cloud
	Pose      *PoseEvent // nil when no pose has arrived yet
	Trail     [][2]float64
	Scale     float64 // pixels per meter
	Padding   int     // pixels around the content
	MaxPoints int     // downsample cap; <=0 means DefaultMaxDisplayPoints
}

// NewCloudRenderer creates a renderer with default scale and padding
func NewCloudRenderer(cloud *Cloud) *CloudRenderer {
	return &CloudRenderer{
		Cloud:     cloud,
		Scale:     10.0,
		Padding:   30,
		MaxPoints: DefaultMaxDisplayPoints,
	}
}

// heightColor maps a normalized height t in [0,1] to the display ramp:
// low points render blue-white, high points red.
func heightColor(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	return color.RGBA{
		R: uint8(255 * t),
		G: uint8(255 * (1 - t/2)),
		B: uint8(255 * (1 - t)),
		A: 255,
	}
}

// Render produces the top-down view as an RGBA image
func (r *CloudRenderer) Render() *image.RGBA {
	cloud := r.Cloud
	if cloud == nil || cloud.Len() == 0 {
		cloud = &Cloud{}
	}

	maxPoints := r.MaxPoints
	if maxPoints <= 0 {
		maxPoints = DefaultMaxDisplayPoints
	}
	cloud = cloud.Downsample(maxPoints, nil)

	min, max := cloud.Bounds()
	spanX := max.X - min.X
	spanY := max.Y - min.Y
	if spanX <= 0 {
		spanX = 1
	}
	if spanY <= 0 {
		spanY = 1
	}

	width := int(spanX*r.Scale) + 2*r.Padding
	height := int(spanY*r.Scale) + 2*r.Padding
	if width < 200 {
		width = 200
	}
	if height < 200 {
		height = 200
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	// Dark background so the height ramp reads well
	bg := color.RGBA{16, 16, 24, 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, bg)
		}
	}

	toPixel := func(wx, wy float64) (int, int) {
		px := int((wx-min.X)*r.Scale) + r.Padding
		// Flip Y so +y in world space points up in the image
		py := height - (int((wy-min.Y)*r.Scale) + r.Padding)
		return px, py
	}

	zSpan := max.Z - min.Z
	if zSpan <= 0 {
		zSpan = 1
	}
	for _, p := range cloud.Points {
		px, py := toPixel(p.X, p.Y)
		if px < 0 || px >= width || py < 0 || py >= height {
			continue
		}
		img.Set(px, py, heightColor((p.Z-min.Z)/zSpan))
	}

	r.drawTrail(img, toPixel, width, height)
	r.drawPose(img, toPixel, width, height)
	r.drawLegend(img, min.Z, max.Z, cloud.Len())

	return img
}

func (r *CloudRenderer) drawTrail(img *image.RGBA, toPixel func(float64, float64) (int, int), width, height int) {
	trailColor := color.RGBA{0, 255, 128, 255}
	for i := 1; i < len(r.Trail); i++ {
		x0, y0 := toPixel(r.Trail[i-1][0], r.Trail[i-1][1])
		x1, y1 := toPixel(r.Trail[i][0], r.Trail[i][1])
		drawLine(img, x0, y0, x1, y1, trailColor)
	}
}

func (r *CloudRenderer) drawPose(img *image.RGBA, toPixel func(float64, float64) (int, int), width, height int) {
	if r.Pose == nil {
		return
	}
	cx, cy := toPixel(r.Pose.X, r.Pose.Y)
	robot := color.RGBA{255, 64, 64, 255}
	drawDisc(img, cx, cy, 5, robot)

	// Heading arrow from yaw; image Y grows downward, hence the minus
	hx := cx + int(14*math.Cos(r.Pose.Yaw))
	hy := cy - int(14*math.Sin(r.Pose.Yaw))
	drawLine(img, cx, cy, hx, hy, robot)
}

func (r *CloudRenderer) drawLegend(img *image.RGBA, minZ, maxZ float64, points int) {
	white := color.RGBA{255, 255, 255, 255}
	drawText(img, 8, 16, fmt.Sprintf("points: %d", points), white)
	drawText(img, 8, 32, fmt.Sprintf("z: %.2f .. %.2f m", minZ, maxZ), white)
	if r.Pose != nil {
		drawText(img, 8, 48, fmt.Sprintf("pose: %.3f %.3f %.3f  yaw %.2f deg",
			r.Pose.X, r.Pose.Y, r.Pose.Z, r.Pose.YawDeg()), white)
	}
}

// SavePNG renders and writes the image to a file
func (r *CloudRenderer) SavePNG(path string) error {
	img := r.Render()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// drawDisc fills a circle of the given radius
func drawDisc(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				x, y := cx+dx, cy+dy
				if image.Pt(x, y).In(img.Bounds()) {
					img.Set(x, y, c)
				}
			}
		}
	}
}

// drawLine draws a 1px Bresenham line
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Bounds()) {
			img.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// drawText renders a small label with the basic 7x13 font
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
