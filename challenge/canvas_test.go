package challenge

import (
	"bytes"
	"image/png"
	"math"
	"sync"
	"testing"
)

func TestFontSizeScaling(t *testing.T) {
	cases := []struct {
		length int
		want   float64
	}{
		{1, 80},
		{6, 80},
		{7, 80 / (7 / 7.5)},
		{15, 40},
	}
	for _, tc := range cases {
		if got := FontSize(tc.length); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("FontSize(%d) = %v, want %v", tc.length, got, tc.want)
		}
	}
	if FontSize(20) >= FontSize(10) {
		t.Fatal("font size must shrink as length grows past six")
	}
}

func TestCanvasRendererProducesFixedCanvasPNG(t *testing.T) {
	r, err := NewCanvasRenderer(nil)
	if err != nil {
		t.Fatalf("NewCanvasRenderer failed: %v", err)
	}
	data, err := r.Render("AbC123")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != CanvasWidth || b.Dy() != CanvasHeight {
		t.Fatalf("expected %dx%d canvas, got %dx%d", CanvasWidth, CanvasHeight, b.Dx(), b.Dy())
	}
}

func TestCanvasRendererLayoutVariesPerRender(t *testing.T) {
	r, err := NewCanvasRenderer(nil)
	if err != nil {
		t.Fatalf("NewCanvasRenderer failed: %v", err)
	}
	a, err := r.Render("same")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	b, err := r.Render("same")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two renders of the same text produced identical images")
	}
}

func TestCanvasRendererDeterministicForSameStream(t *testing.T) {
	render := func() []byte {
		r, err := NewCanvasRenderer(seededSource("layout"))
		if err != nil {
			t.Fatalf("NewCanvasRenderer failed: %v", err)
		}
		data, err := r.Render("xYz789")
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		return data
	}
	if !bytes.Equal(render(), render()) {
		t.Fatal("identical streams produced different images")
	}
}

func TestNilCanvasRendererUnsupported(t *testing.T) {
	var r *CanvasRenderer
	if _, err := r.Render("abc"); err != ErrUnsupportedRenderingBackend {
		t.Fatalf("expected ErrUnsupportedRenderingBackend, got %v", err)
	}
}

func TestCanvasRendererConcurrentRenders(t *testing.T) {
	g := NewGenerator(nil, nil)
	r, err := NewCanvasRenderer(nil)
	if err != nil {
		t.Fatalf("NewCanvasRenderer failed: %v", err)
	}
	g.renderer = r

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := g.Generate(Options{Length: 8})
			if err != nil {
				t.Errorf("Generate failed: %v", err)
				return
			}
			if len(c.Image) == 0 {
				t.Error("empty image")
			}
		}()
	}
	wg.Wait()
}
