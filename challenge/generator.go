package challenge

import (
	"fmt"
	"strings"

	"github.com/MrEthical07/goCaptcha/random"
)

// DefaultLength is the answer length engines configure by default.
const DefaultLength = 6

// Challenge is a rendered image and the answer it encodes. Treat it as
// immutable once returned.
type Challenge struct {
	Text  string
	Image []byte
}

// Clone returns a deep copy, so holders can hand the image to collaborators
// without sharing the backing array.
func (c Challenge) Clone() Challenge {
	img := make([]byte, len(c.Image))
	copy(img, c.Image)
	return Challenge{Text: c.Text, Image: img}
}

// Options controls a single generation.
type Options struct {
	Length   int
	Excluded string
}

// Renderer rasterizes answer text into an encoded image.
type Renderer interface {
	Render(text string) ([]byte, error)
}

// Generator produces challenges. It holds no per-call state and is safe for
// concurrent use when its source and renderer are.
type Generator struct {
	src      random.Source
	renderer Renderer
}

// NewGenerator returns a generator drawing from src and rendering with r.
// A nil src falls back to [random.System]; a nil r makes Generate fail with
// [ErrUnsupportedRenderingBackend].
func NewGenerator(src random.Source, r Renderer) *Generator {
	if src == nil {
		src = random.System()
	}
	return &Generator{src: src, renderer: r}
}

// Generate validates opts, samples the answer, and renders it.
func (g *Generator) Generate(opts Options) (Challenge, error) {
	text, err := g.Text(opts)
	if err != nil {
		return Challenge{}, err
	}
	if g.renderer == nil {
		return Challenge{}, ErrUnsupportedRenderingBackend
	}

	img, err := g.renderer.Render(text)
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{Text: text, Image: img}, nil
}

// Text samples an answer string without rendering it.
func (g *Generator) Text(opts Options) (string, error) {
	length := opts.Length
	if length < 1 {
		return "", fmt.Errorf("%w: length must be >= 1, got %d", ErrInvalidInput, length)
	}

	alphabet, err := NewAlphabet(opts.Excluded)
	if err != nil {
		return "", err
	}
	glyphs := random.Shuffle(g.src, alphabet.Characters)

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteRune(glyphs[random.Intn(g.src, len(glyphs))])
	}
	return b.String(), nil
}
