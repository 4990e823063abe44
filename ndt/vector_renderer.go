package ndt

import (
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// CloudVectorRenderer draws the top-down cloud view as vector graphics,
// suitable for SVG export or high-DPI PNG rasterization. Points are drawn
// decimated; the trajectory and grid come out as crisp paths.
type CloudVectorRenderer struct {
	Cloud       *Cloud
	Pose        *PoseEvent
	Trail       [][2]float64
	Scale       float64           // canvas units per meter
	Padding     float64           // canvas units around the content
	GridSpacing float64           // grid line spacing in meters; 0 disables
	MaxPoints   int               // point decimation cap for vector output
	Resolution  canvas.Resolution // resolution for PNG rasterization
}

// NewCloudVectorRenderer creates a vector renderer with default settings
func NewCloudVectorRenderer(cloud *Cloud) *CloudVectorRenderer {
	return &CloudVectorRenderer{
		Cloud:       cloud,
		Scale:       10.0,
		Padding:     20.0,
		GridSpacing: 5.0,
		MaxPoints:   5000, // vector formats bloat fast; keep point count low
		Resolution:  canvas.DPI(300),
	}
}

// canvasRenderer is the interface both the svg and rasterizer backends implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the view as an SVG document
func (r *CloudVectorRenderer) RenderToSVG(w io.Writer) error {
	width, height := r.size()
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG rasterizes the vector view and writes it as a PNG
func (r *CloudVectorRenderer) RenderToPNG(w io.Writer) error {
	width, height := r.size()
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height)
	return png.Encode(w, rast)
}

func (r *CloudVectorRenderer) size() (width, height float64) {
	min, max := r.bounds()
	width = (max.X-min.X)*r.Scale + 2*r.Padding
	height = (max.Y-min.Y)*r.Scale + 2*r.Padding
	if width < 100 {
		width = 100
	}
	if height < 100 {
		height = 100
	}
	return width, height
}

func (r *CloudVectorRenderer) bounds() (min, max Point3) {
	if r.Cloud == nil || r.Cloud.Len() == 0 {
		return Point3{X: -1, Y: -1}, Point3{X: 1, Y: 1}
	}
	return r.Cloud.Bounds()
}

func (r *CloudVectorRenderer) renderToCanvas(renderer canvasRenderer, width, height float64) {
	min, _ := r.bounds()

	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(wx, wy float64) (float64, float64) {
		return (wx-min.X)*r.Scale + r.Padding, (wy-min.Y)*r.Scale + r.Padding
	}

	r.renderGrid(renderer, toCanvas)
	r.renderPoints(renderer, toCanvas)
	r.renderTrail(renderer, toCanvas)
	r.renderPose(renderer, toCanvas)
}

func (r *CloudVectorRenderer) renderGrid(renderer canvasRenderer, toCanvas func(float64, float64) (float64, float64)) {
	if r.GridSpacing <= 0 {
		return
	}
	min, max := r.bounds()

	gridStyle := canvas.DefaultStyle
	gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	gridStyle.Stroke = canvas.Paint{Color: canvas.Gray}
	gridStyle.StrokeWidth = 0.5
	gridStyle.Dashes = []float64{2.0, 2.0}

	for x := math.Floor(min.X/r.GridSpacing) * r.GridSpacing; x <= max.X; x += r.GridSpacing {
		gridPath := &canvas.Path{}
		x1, y1 := toCanvas(x, min.Y)
		x2, y2 := toCanvas(x, max.Y)
		gridPath.MoveTo(x1, y1)
		gridPath.LineTo(x2, y2)
		renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
	}
	for y := math.Floor(min.Y/r.GridSpacing) * r.GridSpacing; y <= max.Y; y += r.GridSpacing {
		gridPath := &canvas.Path{}
		x1, y1 := toCanvas(min.X, y)
		x2, y2 := toCanvas(max.X, y)
		gridPath.MoveTo(x1, y1)
		gridPath.LineTo(x2, y2)
		renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
	}
}

func (r *CloudVectorRenderer) renderPoints(renderer canvasRenderer, toCanvas func(float64, float64) (float64, float64)) {
	if r.Cloud == nil || r.Cloud.Len() == 0 {
		return
	}
	cloud := r.Cloud.Downsample(r.MaxPoints, nil)
	min, max := cloud.Bounds()
	zSpan := max.Z - min.Z
	if zSpan <= 0 {
		zSpan = 1
	}

	for _, p := range cloud.Points {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: heightColor((p.Z - min.Z) / zSpan)}
		style.Stroke = canvas.Paint{Color: canvas.Transparent}

		cx, cy := toCanvas(p.X, p.Y)
		dot := canvas.Circle(0.3).Translate(cx, cy)
		renderer.RenderPath(dot, style, canvas.Identity)
	}
}

func (r *CloudVectorRenderer) renderTrail(renderer canvasRenderer, toCanvas func(float64, float64) (float64, float64)) {
	if len(r.Trail) < 2 {
		return
	}
	trailStyle := canvas.DefaultStyle
	trailStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	trailStyle.Stroke = canvas.Paint{Color: canvas.Green}
	trailStyle.StrokeWidth = 1.0

	trailPath := &canvas.Path{}
	for i, pt := range r.Trail {
		cx, cy := toCanvas(pt[0], pt[1])
		if i == 0 {
			trailPath.MoveTo(cx, cy)
		} else {
			trailPath.LineTo(cx, cy)
		}
	}
	renderer.RenderPath(trailPath, trailStyle, canvas.Identity)
}

func (r *CloudVectorRenderer) renderPose(renderer canvasRenderer, toCanvas func(float64, float64) (float64, float64)) {
	if r.Pose == nil {
		return
	}
	cx, cy := toCanvas(r.Pose.X, r.Pose.Y)

	robotStyle := canvas.DefaultStyle
	robotStyle.Fill = canvas.Paint{Color: canvas.Red}
	robotStyle.Stroke = canvas.Paint{Color: canvas.Black}
	robotStyle.StrokeWidth = 0.3

	marker := canvas.Circle(1.5).Translate(cx, cy)
	renderer.RenderPath(marker, robotStyle, canvas.Identity)

	headingStyle := canvas.DefaultStyle
	headingStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	headingStyle.Stroke = canvas.Paint{Color: canvas.Red}
	headingStyle.StrokeWidth = 0.5

	heading := &canvas.Path{}
	heading.MoveTo(cx, cy)
	heading.LineTo(cx+4*math.Cos(r.Pose.Yaw), cy+4*math.Sin(r.Pose.Yaw))
	renderer.RenderPath(heading, headingStyle, canvas.Identity)
}
