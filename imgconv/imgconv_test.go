package imgconv

import (
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writePNG writes a PNG with a transparent left half and a solid right half.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, color.NRGBA{})
			} else {
				img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
			}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestNormalize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	dst := filepath.Join(dir, "photo.jpg")
	writePNG(t, src, 600, 400)

	res := Normalize(src, dst, 336, 95)
	if !res.OK {
		t.Fatalf("Normalize failed: %s", res.Err)
	}
	if res.Width != 336 || res.Height != 224 {
		t.Fatalf("dimensions = %dx%d, want 336x224", res.Width, res.Height)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	out, format, err := image.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if format != "jpeg" {
		t.Errorf("output format = %q, want jpeg", format)
	}
	if b := out.Bounds(); b.Dx() != 336 || b.Dy() != 224 {
		t.Errorf("output bounds = %dx%d, want 336x224", b.Dx(), b.Dy())
	}

	// The transparent half must come out opaque white, not black.
	r, g, b, _ := out.At(10, 112).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("transparent area rendered as rgb(%d,%d,%d), want near-white", r>>8, g>>8, b>>8)
	}
}

// Height scaling rounds to nearest rather than truncating: 333 px source
// height at 336/1000 scale is 111.888, which must become 112.
func TestNormalizeRoundsHeight(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.png")
	dst := filepath.Join(dir, "wide.jpg")
	writePNG(t, src, 1000, 333)

	res := Normalize(src, dst, 336, 95)
	if !res.OK {
		t.Fatalf("Normalize failed: %s", res.Err)
	}
	if res.Height != 112 {
		t.Errorf("height = %d, want 112", res.Height)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	dst := filepath.Join(dir, "photo.jpg")
	writePNG(t, src, 672, 672)

	res := Normalize(src, dst, 0, 0)
	if !res.OK {
		t.Fatalf("Normalize failed: %s", res.Err)
	}
	if res.Width != DefaultWidth || res.Height != DefaultWidth {
		t.Errorf("dimensions = %dx%d, want %dx%d", res.Width, res.Height, DefaultWidth, DefaultWidth)
	}
}

func TestNormalizeErrors(t *testing.T) {
	dir := t.TempDir()

	res := Normalize(filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.jpg"), 336, 95)
	if res.OK || res.Err == "" {
		t.Errorf("expected failure for missing source, got %+v", res)
	}

	bad := filepath.Join(dir, "bad.png")
	os.WriteFile(bad, []byte("not an image"), 0644)
	res = Normalize(bad, filepath.Join(dir, "out.jpg"), 336, 95)
	if res.OK || res.Err == "" {
		t.Errorf("expected failure for corrupt source, got %+v", res)
	}
}
