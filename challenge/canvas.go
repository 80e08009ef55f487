package challenge

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/MrEthical07/goCaptcha/random"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

const (
	// CanvasWidth and CanvasHeight are the fixed raster dimensions.
	CanvasWidth  = 400
	CanvasHeight = 250

	linesPerBand   = 5
	lineWidth      = 4
	circleCount    = 200
	circleMargin   = 20
	circleMaxExtra = 7
	dotCount       = 5000
	dotMaxRadius   = 2
	dotAlpha       = 0xa0

	baseFontSize     = 80
	fontScaleLength  = 6
	fontScaleDivisor = 7.5
	maxRotation      = 0.5
	jitterX          = 100
)

var (
	fontOnce   sync.Once
	parsedFont *truetype.Font
	fontErr    error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		parsedFont, fontErr = truetype.Parse(gobold.TTF)
	})
	return parsedFont, fontErr
}

// CanvasRenderer draws challenges with gg. It keeps no per-render state, so one
// instance serves every session in the process.
type CanvasRenderer struct {
	src  random.Source
	font *truetype.Font
}

// NewCanvasRenderer parses the embedded font once. A nil src uses [random.System].
func NewCanvasRenderer(src random.Source) (*CanvasRenderer, error) {
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedRenderingBackend, err)
	}
	if src == nil {
		src = random.System()
	}
	return &CanvasRenderer{src: src, font: f}, nil
}

// FontSize returns the text size for an answer of the given length. Answers
// longer than six glyphs shrink so they still fit the canvas.
func FontSize(length int) float64 {
	if length > fontScaleLength {
		return baseFontSize / (float64(length) / fontScaleDivisor)
	}
	return baseFontSize
}

// Render draws text over background, line, speckle and dot noise and encodes
// the result as PNG.
func (r *CanvasRenderer) Render(text string) ([]byte, error) {
	if r == nil || r.font == nil {
		return nil, ErrUnsupportedRenderingBackend
	}

	dc := gg.NewContext(CanvasWidth, CanvasHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	r.drawLines(dc)
	r.drawSpeckles(dc)
	r.drawText(dc, text)
	r.drawDots(dc)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode challenge png: %w", err)
	}
	return buf.Bytes(), nil
}

// bandedCoords returns one coordinate per band, each jittered inside its band,
// so lines spread over the whole frame instead of clustering.
func (r *CanvasRenderer) bandedCoords(extent float64) []float64 {
	band := extent / linesPerBand
	out := make([]float64, linesPerBand)
	for j := range out {
		out[j] = math.Round(r.src.Float64()*band) + float64(j)*band
	}
	return out
}

func (r *CanvasRenderer) drawLines(dc *gg.Context) {
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(lineWidth)

	// Start points are shuffled and end points are not, so line pairs cross
	// some of the time but never all of the time.
	tops := random.Shuffle(r.src, r.bandedCoords(CanvasWidth))
	bottoms := r.bandedCoords(CanvasWidth)
	for j := range tops {
		dc.DrawLine(tops[j], 0, bottoms[j], CanvasHeight)
	}

	lefts := random.Shuffle(r.src, r.bandedCoords(CanvasHeight))
	rights := r.bandedCoords(CanvasHeight)
	for j := range lefts {
		dc.DrawLine(0, lefts[j], CanvasWidth, rights[j])
	}
	dc.Stroke()
}

func (r *CanvasRenderer) drawSpeckles(dc *gg.Context) {
	dc.SetRGB(0, 0, 0)
	for i := 0; i < circleCount; i++ {
		x := math.Round(r.src.Float64()*(CanvasWidth-2*circleMargin)) + circleMargin
		y := math.Round(r.src.Float64()*(CanvasHeight-2*circleMargin)) + circleMargin
		radius := math.Round(r.src.Float64()*circleMaxExtra) + 1
		dc.DrawCircle(x, y, radius)
		dc.Fill()
	}
}

func (r *CanvasRenderer) drawText(dc *gg.Context, text string) {
	face := truetype.NewFace(r.font, &truetype.Options{
		Size:    FontSize(len([]rune(text))),
		Hinting: font.HintingNone,
	})
	defer face.Close()

	x := math.Round(r.src.Float64()*jitterX-jitterX/2) + CanvasWidth/2
	y := CanvasHeight/2 + math.Round(r.src.Float64()*(CanvasHeight/4)-CanvasHeight/8)
	angle := random.Between(r.src, -maxRotation, maxRotation)

	dc.Push()
	dc.SetFontFace(face)
	dc.SetRGB(0, 0, 0)
	dc.Translate(x, y)
	dc.Rotate(angle)
	dc.DrawStringAnchored(text, 0, 0, 0.5, 0.5)
	dc.Pop()
}

func (r *CanvasRenderer) drawDots(dc *gg.Context) {
	for i := 0; i < dotCount; i++ {
		dc.SetColor(r.noiseColor())
		dc.DrawCircle(
			math.Round(r.src.Float64()*CanvasWidth),
			math.Round(r.src.Float64()*CanvasHeight),
			r.src.Float64()*dotMaxRadius,
		)
		dc.Fill()
	}
}

// noiseColor draws each of the six hex digits independently.
func (r *CanvasRenderer) noiseColor() color.NRGBA {
	var nibbles [6]uint8
	for i := range nibbles {
		nibbles[i] = uint8(random.Intn(r.src, 16))
	}
	return color.NRGBA{
		R: nibbles[0]<<4 | nibbles[1],
		G: nibbles[2]<<4 | nibbles[3],
		B: nibbles[4]<<4 | nibbles[5],
		A: dotAlpha,
	}
}
